package gate

import "net/http"

// Effects are the response side effects a gate operation asks for. The HTTP
// boundary applies them once, before any body is written.
type Effects struct {
	Cookies []*http.Cookie
	Headers http.Header
}

func (e *Effects) setCookie(c *http.Cookie) {
	e.Cookies = append(e.Cookies, c)
}

func (e *Effects) setHeader(key, value string) {
	if e.Headers == nil {
		e.Headers = http.Header{}
	}
	e.Headers.Set(key, value)
}

// noStore marks a response that carries a credential.
func (e *Effects) noStore() {
	e.setHeader("Cache-Control", "no-store")
	e.setHeader("Pragma", "no-cache")
}

// Apply writes headers and cookies to w.
func (e Effects) Apply(w http.ResponseWriter) {
	for k, vs := range e.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	for _, c := range e.Cookies {
		http.SetCookie(w, c)
	}
}
