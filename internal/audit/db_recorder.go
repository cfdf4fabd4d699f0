package audit

import (
	"context"
	"errors"

	"otp-gateway/internal/db"
)

// DBRecorder writes events to the reservation_events table.
type DBRecorder struct {
	db *db.DB
}

func NewDBRecorder(db *db.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

func (r *DBRecorder) Record(ctx context.Context, e Event) error {
	if e.Kind == "" || e.SessionID == "" || e.ActivationID == "" {
		return errors.New("audit: event kind, session and activation id are required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reservation_events
			(session_hash, event, provider, activation_id, number, detail, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		SessionHash(e.SessionID),
		string(e.Kind),
		e.Provider,
		e.ActivationID,
		e.Number,
		e.Detail,
		e.RequestID,
	)
	return err
}
