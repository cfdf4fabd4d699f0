package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(20)
	require.NoError(t, err)
	b, err := RandomHex(20)
	require.NoError(t, err)

	assert.Len(t, a, 40)
	assert.NotEqual(t, a, b)
	assert.True(t, IsHex(a, 20))
}

func TestIsHex(t *testing.T) {
	valid := strings.Repeat("ab", 20)

	assert.True(t, IsHex(valid, 20))
	assert.False(t, IsHex(valid, 24))
	assert.False(t, IsHex(strings.ToUpper(valid), 20))
	assert.False(t, IsHex(valid[:39]+"g", 20))
	assert.False(t, IsHex("", 20))
}
