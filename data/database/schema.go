package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Table shapes per the storage contract. LEAST/GREATEST gives the
// uniqueness constraint on the unordered friend pair; the partial unique
// index is direction-free so a pair can never hold two edges.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS friends (
		id           BIGSERIAL PRIMARY KEY,
		requester_id BIGINT NOT NULL REFERENCES users(id),
		recipient_id BIGINT NOT NULL REFERENCES users(id),
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (requester_id <> recipient_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS friends_pair_uniq
		ON friends (LEAST(requester_id, recipient_id), GREATEST(requester_id, recipient_id))`,
	`CREATE TABLE IF NOT EXISTS messages (
		id              BIGSERIAL PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id       BIGINT NOT NULL REFERENCES users(id),
		recipient_id    BIGINT NOT NULL REFERENCES users(id),
		text            TEXT NOT NULL,
		timestamp       TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_read         BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS messages_conversation_idx
		ON messages (conversation_id, timestamp, id)`,
	`CREATE INDEX IF NOT EXISTS messages_unread_idx
		ON messages (recipient_id, sender_id) WHERE is_read = FALSE`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	return nil
}
