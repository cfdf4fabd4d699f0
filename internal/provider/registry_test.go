package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedProvider string

func (p namedProvider) Name() string { return string(p) }

func (namedProvider) Acquire(context.Context) (Number, error) { return Number{}, nil }

func (namedProvider) Status(context.Context, string) (Status, error) { return Status{}, nil }

func (namedProvider) Release(context.Context, string) (Release, error) { return Release{}, nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry(namedProvider("a"), namedProvider("b"))

	p, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "b", p.Name())

	_, err = r.Get("c")
	assert.EqualError(t, err, "unknown provider: c")
}

func TestRejectedErrorUnwrapsWithAs(t *testing.T) {
	err := error(&RejectedError{Raw: "NO_NUMBERS"})

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "NO_NUMBERS", rejected.Raw)
	assert.False(t, errors.Is(err, ErrUnavailable))
}
