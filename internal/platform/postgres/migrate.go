package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema. Statements are idempotent so every instance can
// run this at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id                   UUID PRIMARY KEY,
			requester_id         UUID        NOT NULL,
			document_ref         TEXT        NOT NULL,
			credential_type      TEXT        NOT NULL,
			status               TEXT        NOT NULL,
			assigned_verifier_id UUID,
			claim                JSONB,
			checklist            JSONB       NOT NULL,
			price_quote          JSONB       NOT NULL,
			escrow_ref           TEXT        NOT NULL,
			decision             JSONB,
			dispute_ref          UUID,
			sla_deadline         TIMESTAMPTZ NOT NULL,
			sla_breached         BOOLEAN     NOT NULL DEFAULT FALSE,
			version              BIGINT      NOT NULL,
			created_at           TIMESTAMPTZ NOT NULL,
			updated_at           TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_submitted_idx
			ON jobs (credential_type, created_at, sla_deadline)
			WHERE status = 'submitted'`,
		`CREATE INDEX IF NOT EXISTS jobs_claim_expiry_idx
			ON jobs ((claim->>'expires_at'))
			WHERE claim IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS jobs_sla_idx
			ON jobs (sla_deadline)
			WHERE NOT sla_breached AND status NOT IN ('completed', 'rejected', 'disputed')`,
		`CREATE TABLE IF NOT EXISTS job_activity (
			seq       BIGSERIAL PRIMARY KEY,
			job_id    UUID        NOT NULL,
			event     TEXT        NOT NULL,
			from_status TEXT      NOT NULL DEFAULT '',
			to_status TEXT        NOT NULL,
			actor     TEXT        NOT NULL,
			ts        TIMESTAMPTZ NOT NULL,
			metadata  JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS job_activity_job_idx ON job_activity (job_id, seq)`,
		`CREATE TABLE IF NOT EXISTS disputes (
			id            UUID PRIMARY KEY,
			job_id        UUID        NOT NULL,
			filed_by      TEXT        NOT NULL,
			filed_by_role TEXT        NOT NULL,
			reason        TEXT        NOT NULL,
			status        TEXT        NOT NULL,
			resolution    JSONB,
			filed_at      TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS disputes_live_job_idx
			ON disputes (job_id)
			WHERE status <> 'resolved'`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
