package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionHash(t *testing.T) {
	a := SessionHash("session-a")

	assert.Len(t, a, 64)
	assert.Equal(t, a, SessionHash("session-a"))
	assert.NotEqual(t, a, SessionHash("session-b"))
	assert.NotContains(t, a, "session-a")
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Event{Kind: Acquired}))
}

func TestDBRecorderRejectsIncompleteEvent(t *testing.T) {
	r := NewDBRecorder(nil)
	assert.Error(t, r.Record(context.Background(), Event{Kind: Acquired}))
}
