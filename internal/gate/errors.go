package gate

import "errors"

var (
	ErrNoSession         = errors.New("no session, request a token first")
	ErrMissingCredential = errors.New("missing token")
	ErrMissingRefresh    = errors.New("refresh token required")
	ErrMissingID         = errors.New("ID required")
	ErrUnknownAction     = errors.New("invalid path")
)
