package db

import (
	"context"
	"database/sql"
)

const auditMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS reservation_events (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    session_hash text NOT NULL,
    event text NOT NULL,
    provider text NOT NULL,
    activation_id text NOT NULL,
    number text NOT NULL DEFAULT '',
    detail text NOT NULL DEFAULT '',
    request_id text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS reservation_events_activation_idx
ON reservation_events (provider, activation_id);

CREATE INDEX IF NOT EXISTS reservation_events_created_at_idx
ON reservation_events (created_at);
`

func RunAuditMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, auditMigration)
	return err
}
