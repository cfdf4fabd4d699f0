package provider

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport failures and non-2xx answers from a provider.
// It is a service error, never an authentication failure.
var ErrUnavailable = errors.New("provider unavailable")

// RejectedError is a well-formed provider answer that is not a success,
// e.g. NO_NUMBERS or NO_BALANCE. Raw holds the provider's text verbatim.
type RejectedError struct {
	Raw string
}

func (e *RejectedError) Error() string {
	return "provider rejected request: " + e.Raw
}

// Number is a phone number rented from a provider.
type Number struct {
	ID     string
	Number string
}

// Status is a provider's answer about an activation. Done means the
// activation reached a terminal state (code delivered or cancelled) and the
// number is no longer held.
type Status struct {
	Raw  string
	Done bool
}

// Release is a provider's answer to a cancel. Released means the number is
// no longer held, whether it was cancelled now or already gone.
type Release struct {
	Raw      string
	Released bool
}

// Provider defines the contract of an SMS-activation backend. Implementations
// return provider facts only and must not touch sessions, tokens or
// reservations.
type Provider interface {
	// Name returns the provider identifier (e.g. "smsactivate").
	Name() string

	// Acquire rents a new number.
	Acquire(ctx context.Context) (Number, error)

	// Status reports the state of an activation.
	Status(ctx context.Context, id string) (Status, error)

	// Release cancels an activation.
	Release(ctx context.Context, id string) (Release, error)
}
