package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the tables the vote engine reads and writes. users and posts
// are owned by the surrounding application; they are created here only so a
// fresh database is usable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id              VARCHAR(64) PRIMARY KEY,
		is_verified          BOOLEAN NOT NULL DEFAULT FALSE,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		comment_count        INTEGER NOT NULL DEFAULT 0,
		photo_count          INTEGER NOT NULL DEFAULT 0,
		total_spent          DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_votes_given    INTEGER NOT NULL DEFAULT 0,
		voting_streak        INTEGER NOT NULL DEFAULT 0,
		last_active_at       TIMESTAMPTZ,
		average_rating_given DOUBLE PRECISION NOT NULL DEFAULT 0,
		voting_pattern       VARCHAR(16) NOT NULL DEFAULT 'NEUTRAL',
		gender               VARCHAR(16) NOT NULL DEFAULT '',
		orientation          VARCHAR(16) NOT NULL DEFAULT '',
		date_of_birth        DATE
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		post_id    VARCHAR(64) PRIMARY KEY,
		creator_id VARCHAR(64) NOT NULL REFERENCES users (user_id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS post_ratings (
		post_id         VARCHAR(64) PRIMARY KEY REFERENCES posts (post_id) ON DELETE CASCADE,
		buckets         BIGINT[] NOT NULL DEFAULT '{0,0,0,0,0,0,0,0,0,0}',
		weighted_sum    DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_weight    DOUBLE PRECISION NOT NULL DEFAULT 0,
		vote_count      BIGINT NOT NULL DEFAULT 0,
		average_rating  DOUBLE PRECISION NOT NULL DEFAULT 0,
		weighted_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id                 UUID PRIMARY KEY,
		post_id            VARCHAR(64) NOT NULL REFERENCES posts (post_id) ON DELETE CASCADE,
		voter_id           VARCHAR(64) REFERENCES users (user_id),
		ip_hash            VARCHAR(64) NOT NULL,
		rating             SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 10),
		weight             NUMERIC(8,3) NOT NULL,
		base_weight        DOUBLE PRECISION NOT NULL DEFAULT 1,
		demographic_weight DOUBLE PRECISION NOT NULL DEFAULT 1,
		pattern_weight     DOUBLE PRECISION NOT NULL DEFAULT 1,
		context            VARCHAR(16) NOT NULL DEFAULT 'DIRECT',
		is_outlier         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS votes_post_voter_key ON votes (post_id, voter_id) WHERE voter_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS votes_post_ip_key ON votes (post_id, ip_hash)`,
	`CREATE INDEX IF NOT EXISTS votes_voter_created_idx ON votes (voter_id, created_at) WHERE voter_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id          BIGSERIAL PRIMARY KEY,
		user_id     VARCHAR(64) NOT NULL,
		action_type VARCHAR(32) NOT NULL,
		details     JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
