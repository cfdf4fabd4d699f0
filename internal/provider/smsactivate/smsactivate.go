package smsactivate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"otp-gateway/internal/logger"
	"otp-gateway/internal/metrics"
	"otp-gateway/internal/provider"
)

const providerName = "smsactivate"

// statusCancel is the setStatus code that cancels an activation.
const statusCancel = "8"

// maxBody caps how much of a provider answer is read.
const maxBody = 64 << 10

// Provider implements the handler_api.php protocol spoken by SMS-activation
// services. It returns provider facts only.
type Provider struct {
	baseURL *url.URL
	apiKey  string
	service string
	country string
	http    *http.Client
}

// New validates the endpoint configuration. baseURL is the full handler_api.php URL.
func New(
	baseURL string,
	apiKey string,
	service string,
	country string,
	timeout time.Duration,
) (*Provider, error) {

	if baseURL == "" || apiKey == "" || service == "" || country == "" {
		return nil, errors.New("smsactivate config missing required fields")
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("smsactivate base url %q is invalid", baseURL)
	}

	return &Provider{
		baseURL: u,
		apiKey:  apiKey,
		service: service,
		country: country,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// Acquire calls getNumber. ACCESS_NUMBER:<id>:<number> is the only success.
func (p *Provider) Acquire(ctx context.Context) (provider.Number, error) {
	body, err := p.call(ctx, "getNumber", url.Values{
		"service": {p.service},
		"country": {p.country},
	})
	if err != nil {
		return provider.Number{}, err
	}

	parts := strings.Split(body, ":")
	if len(parts) == 3 && parts[0] == "ACCESS_NUMBER" && parts[1] != "" && parts[2] != "" {
		metrics.ProviderCalls.WithLabelValues("getNumber", "ok").Inc()
		return provider.Number{ID: parts[1], Number: parts[2]}, nil
	}

	metrics.ProviderCalls.WithLabelValues("getNumber", "rejected").Inc()
	return provider.Number{}, &provider.RejectedError{Raw: body}
}

// Status calls getStatus. STATUS_OK:<code> and STATUS_CANCEL are terminal, as
// is NO_ACTIVATION: the provider no longer holds the number.
func (p *Provider) Status(ctx context.Context, id string) (provider.Status, error) {
	body, err := p.call(ctx, "getStatus", url.Values{"id": {id}})
	if err != nil {
		return provider.Status{}, err
	}
	metrics.ProviderCalls.WithLabelValues("getStatus", "ok").Inc()

	done := strings.HasPrefix(body, "STATUS_OK:") || body == "STATUS_CANCEL" || body == "NO_ACTIVATION"
	return provider.Status{Raw: body, Done: done}, nil
}

// Release calls setStatus with the cancel code. ACCESS_CANCEL confirms the
// cancel; NO_ACTIVATION means the provider no longer knows the id.
func (p *Provider) Release(ctx context.Context, id string) (provider.Release, error) {
	body, err := p.call(ctx, "setStatus", url.Values{
		"id":     {id},
		"status": {statusCancel},
	})
	if err != nil {
		return provider.Release{}, err
	}
	metrics.ProviderCalls.WithLabelValues("setStatus", "ok").Inc()

	released := body == "ACCESS_CANCEL" || body == "NO_ACTIVATION"
	return provider.Release{Raw: body, Released: released}, nil
}

func (p *Provider) call(ctx context.Context, action string, params url.Values) (string, error) {
	q := p.baseURL.Query()
	q.Set("action", action)
	q.Set("api_key", p.apiKey)
	for k, v := range params {
		q[k] = v
	}

	u := *p.baseURL
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("smsactivate: build %s request: %w", action, err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(action, "unavailable").Inc()
		// The url carries the api key; log the action only.
		logger.Error("smsactivate request failed", map[string]any{
			"action": action,
		})
		return "", fmt.Errorf("%w: %s", provider.ErrUnavailable, action)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(action, "unavailable").Inc()
		return "", fmt.Errorf("%w: %s: read body: %v", provider.ErrUnavailable, action, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProviderCalls.WithLabelValues(action, "unavailable").Inc()
		logger.Error("smsactivate returned non-2xx", map[string]any{
			"action": action,
			"status": resp.StatusCode,
		})
		return "", fmt.Errorf("%w: %s: status %d", provider.ErrUnavailable, action, resp.StatusCode)
	}

	return strings.TrimSpace(string(raw)), nil
}
