// Package gate runs the per-request authentication pipeline in front of the
// provider: session, fingerprint, bearer token, reservation, provider call,
// token rotation. Each stage short-circuits; the access token is consumed
// only by the token stage and reservations are touched only after it.
package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"otp-gateway/internal/audit"
	"otp-gateway/internal/fingerprint"
	"otp-gateway/internal/logger"
	"otp-gateway/internal/metrics"
	"otp-gateway/internal/middleware"
	"otp-gateway/internal/provider"
	"otp-gateway/internal/reservation"
	"otp-gateway/internal/session"
	"otp-gateway/internal/token"
)

type Action string

const (
	ActionAcquire Action = "acquire"
	ActionStatus  Action = "status"
	ActionRelease Action = "release"
)

// Issued is the answer of the issuance endpoint.
type Issued struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	SessionID    string
}

// Refreshed is a new access token minted from a refresh token.
type Refreshed struct {
	AccessToken string
	ExpiresIn   int
}

// Result is the outcome of a protected action that reached the provider.
// Success false with Raw set is a provider-level refusal, e.g. NO_NUMBERS.
type Result struct {
	Action  Action
	Success bool
	Raw     string

	Reservation *reservation.Reservation
	// Released is set when the session no longer holds the number.
	Released bool

	// NextToken is empty only if minting the rotated token failed.
	NextToken string
}

type Gate struct {
	sessions     *session.Manager
	tokens       *token.Issuer
	reservations *reservation.Manager
	provider     provider.Provider
	audit        audit.Recorder
}

func New(
	sessions *session.Manager,
	tokens *token.Issuer,
	reservations *reservation.Manager,
	p provider.Provider,
	recorder audit.Recorder,
) *Gate {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Gate{
		sessions:     sessions,
		tokens:       tokens,
		reservations: reservations,
		provider:     p,
		audit:        recorder,
	}
}

func (g *Gate) expiresIn() int {
	return int(g.tokens.AccessTTL().Seconds())
}

// IssueTokens resolves the session, creating one if the request has none, and
// mints an access and refresh token pair for it.
func (g *Gate) IssueTokens(r *http.Request) (*Issued, Effects, error) {
	var eff Effects
	ctx := r.Context()

	sessionID, ok := g.sessions.Resolve(r)
	if !ok {
		id, cookie, err := g.sessions.Create()
		if err != nil {
			return nil, eff, err
		}
		sessionID = id
		eff.setCookie(cookie)
		metrics.SessionsCreated.Inc()
	}

	pair, err := g.tokens.IssuePair(ctx, sessionID, fingerprint.FromRequest(r))
	if err != nil {
		return nil, eff, err
	}

	eff.noStore()
	return &Issued{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresIn:    g.expiresIn(),
		SessionID:    sessionID,
	}, eff, nil
}

// RefreshAccess mints a new access token from a refresh token. The refresh
// token stays valid until its own expiry.
func (g *Gate) RefreshAccess(r *http.Request, refreshToken string) (*Refreshed, Effects, error) {
	var eff Effects
	ctx := r.Context()

	if refreshToken == "" {
		return nil, eff, ErrMissingRefresh
	}

	sessionID, ok := g.sessions.Resolve(r)
	if !ok {
		metrics.GateRejections.WithLabelValues("no_session").Inc()
		return nil, eff, ErrNoSession
	}

	fp := fingerprint.FromRequest(r)
	if err := g.tokens.VerifyRefresh(ctx, sessionID, fp, refreshToken); err != nil {
		metrics.GateRejections.WithLabelValues("invalid_refresh").Inc()
		return nil, eff, err
	}

	access, err := g.tokens.Issue(ctx, sessionID, fp)
	if err != nil {
		return nil, eff, err
	}

	eff.noStore()
	return &Refreshed{AccessToken: access, ExpiresIn: g.expiresIn()}, eff, nil
}

// Execute authenticates r and runs action against the provider. id names the
// activation for status and release and is ignored for acquire.
func (g *Gate) Execute(r *http.Request, action Action, id string) (*Result, Effects, error) {
	var eff Effects
	ctx := r.Context()

	switch action {
	case ActionAcquire:
	case ActionStatus, ActionRelease:
		if id == "" {
			return nil, eff, ErrMissingID
		}
	default:
		return nil, eff, ErrUnknownAction
	}

	sessionID, ok := g.sessions.Resolve(r)
	if !ok {
		metrics.GateRejections.WithLabelValues("no_session").Inc()
		return nil, eff, ErrNoSession
	}

	fp := fingerprint.FromRequest(r)

	credential, ok := bearer(r.Header.Get("Authorization"))
	if !ok {
		metrics.GateRejections.WithLabelValues("missing_credential").Inc()
		return nil, eff, ErrMissingCredential
	}

	if err := g.tokens.Verify(ctx, sessionID, fp, credential); err != nil {
		metrics.GateRejections.WithLabelValues("invalid_token").Inc()
		return nil, eff, err
	}

	var (
		res *Result
		err error
	)
	switch action {
	case ActionAcquire:
		res, err = g.acquire(ctx, sessionID)
	case ActionStatus:
		res, err = g.status(ctx, sessionID, id)
	case ActionRelease:
		res, err = g.release(ctx, sessionID, id)
	}
	if err != nil {
		return nil, eff, err
	}
	res.Action = action

	next, err := g.tokens.Issue(ctx, sessionID, fp)
	if err != nil {
		logger.Error("failed to rotate access token", map[string]any{
			"action":     string(action),
			"error":      err.Error(),
			"request_id": requestID(ctx),
		})
	} else {
		res.NextToken = next
		eff.noStore()
	}

	return res, eff, nil
}

func (g *Gate) acquire(ctx context.Context, sessionID string) (*Result, error) {
	if _, err := g.reservations.Lookup(ctx, sessionID); err == nil {
		metrics.Reservations.WithLabelValues("conflict").Inc()
		return nil, reservation.ErrConflict
	} else if !errors.Is(err, reservation.ErrNotFound) {
		return nil, err
	}

	n, err := g.provider.Acquire(ctx)
	var rejected *provider.RejectedError
	if errors.As(err, &rejected) {
		return &Result{Success: false, Raw: rejected.Raw}, nil
	}
	if err != nil {
		return nil, err
	}

	res, err := g.reservations.Acquire(ctx, sessionID, n.ID, n.Number)
	if err != nil {
		// Nothing tracks this number now; hand it back.
		g.abandon(ctx, sessionID, n, err)
		if errors.Is(err, reservation.ErrConflict) {
			metrics.Reservations.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	metrics.Reservations.WithLabelValues("acquired").Inc()
	g.record(ctx, audit.Event{
		Kind:         audit.Acquired,
		SessionID:    sessionID,
		ActivationID: n.ID,
		Number:       n.Number,
	})

	return &Result{Success: true, Reservation: res}, nil
}

func (g *Gate) status(ctx context.Context, sessionID, id string) (*Result, error) {
	res, err := g.reservations.Holds(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}

	st, err := g.provider.Status(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &Result{Success: true, Raw: st.Raw, Reservation: res}
	if st.Done {
		out.Released = g.clear(ctx, sessionID)
		metrics.Reservations.WithLabelValues("completed").Inc()
		g.record(ctx, audit.Event{
			Kind:         audit.Completed,
			SessionID:    sessionID,
			ActivationID: id,
			Number:       res.Number,
			Detail:       st.Raw,
		})
	}
	return out, nil
}

func (g *Gate) release(ctx context.Context, sessionID, id string) (*Result, error) {
	res, err := g.reservations.Holds(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}

	rel, err := g.provider.Release(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &Result{Success: true, Raw: rel.Raw, Reservation: res}
	if rel.Released {
		out.Released = g.clear(ctx, sessionID)
		metrics.Reservations.WithLabelValues("released").Inc()
		g.record(ctx, audit.Event{
			Kind:         audit.Released,
			SessionID:    sessionID,
			ActivationID: id,
			Number:       res.Number,
			Detail:       rel.Raw,
		})
	}
	return out, nil
}

// clear drops the reservation after the provider call already succeeded. A
// store failure here is logged; the record still expires by TTL.
func (g *Gate) clear(ctx context.Context, sessionID string) bool {
	if err := g.reservations.Release(ctx, sessionID); err != nil {
		logger.Error("failed to clear reservation", map[string]any{
			"error":      err.Error(),
			"request_id": requestID(ctx),
		})
		return false
	}
	return true
}

func (g *Gate) abandon(ctx context.Context, sessionID string, n provider.Number, cause error) {
	rel, err := g.provider.Release(ctx, n.ID)
	if err != nil {
		logger.Error("failed to cancel untracked number", map[string]any{
			"activation_id": n.ID,
			"cause":         cause.Error(),
			"error":         err.Error(),
			"request_id":    requestID(ctx),
		})
		return
	}

	logger.Warn("cancelled untracked number", map[string]any{
		"activation_id": n.ID,
		"cause":         cause.Error(),
		"provider":      rel.Raw,
		"request_id":    requestID(ctx),
	})
	metrics.Reservations.WithLabelValues("abandoned").Inc()
	g.record(ctx, audit.Event{
		Kind:         audit.Abandoned,
		SessionID:    sessionID,
		ActivationID: n.ID,
		Number:       n.Number,
		Detail:       rel.Raw,
	})
}

func (g *Gate) record(ctx context.Context, e audit.Event) {
	e.Provider = g.provider.Name()
	e.RequestID = requestID(ctx)
	if err := g.audit.Record(ctx, e); err != nil {
		logger.Warn("failed to record reservation event", map[string]any{
			"event":      string(e.Kind),
			"error":      err.Error(),
			"request_id": e.RequestID,
		})
	}
}

// bearer extracts the credential from an "Authorization: Bearer <token>" header.
func bearer(header string) (string, bool) {
	scheme, cred, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	cred = strings.TrimSpace(cred)
	if cred == "" || strings.ContainsAny(cred, " \t") {
		return "", false
	}
	return cred, true
}

func requestID(ctx context.Context) string {
	id, _ := middleware.RequestIDFromContext(ctx)
	return id
}
