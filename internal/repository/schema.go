package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS neighborhoods (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	city       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS providers (
	id              TEXT PRIMARY KEY,
	user_name       TEXT NOT NULL,
	service_type    TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	trust_score     REAL NOT NULL DEFAULT 0 CHECK (trust_score >= 0 AND trust_score <= 5),
	verification    INTEGER NOT NULL DEFAULT 0,
	neighborhood_id TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	FOREIGN KEY (neighborhood_id) REFERENCES neighborhoods(id)
);

CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	customer_id  TEXT NOT NULL,
	provider_id  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled')),
	price        REAL NOT NULL DEFAULT 0 CHECK (price >= 0),
	completed_at TIMESTAMP,
	created_at   TIMESTAMP NOT NULL,
	FOREIGN KEY (provider_id) REFERENCES providers(id)
);

CREATE TABLE IF NOT EXISTS ratings (
	id            TEXT PRIMARY KEY,
	job_id        TEXT NOT NULL UNIQUE,
	customer_id   TEXT NOT NULL,
	provider_id   TEXT NOT NULL,
	reliability   INTEGER NOT NULL CHECK (reliability BETWEEN 1 AND 5),
	punctuality   INTEGER NOT NULL CHECK (punctuality BETWEEN 1 AND 5),
	price_honesty INTEGER NOT NULL CHECK (price_honesty BETWEEN 1 AND 5),
	comment       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id),
	FOREIGN KEY (provider_id) REFERENCES providers(id)
);

CREATE INDEX IF NOT EXISTS idx_ratings_provider_created ON ratings(provider_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_provider ON jobs(provider_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_providers_trust ON providers(trust_score DESC);
`

// EnsureSchema creates all tables and indexes if they do not exist yet.
// It is safe to run on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
