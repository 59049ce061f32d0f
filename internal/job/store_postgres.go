package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"verza/internal/document"
	"verza/internal/escrow"
	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
)

// PostgresStore persists jobs in PostgreSQL. Compare-and-swap takes a row
// lock for the read-mutate-write window, so the version check and the update
// are atomic even across service instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const jobColumns = `id, requester_id, document_ref, credential_type, status,
	assigned_verifier_id, claim, checklist, price_quote, escrow_ref, decision,
	dispute_ref, sla_deadline, sla_breached, version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, j *VerificationJob) error {
	checklist, err := json.Marshal(j.Checklist)
	if err != nil {
		return fmt.Errorf("marshal checklist: %w", err)
	}
	quote, err := json.Marshal(j.PriceQuote)
	if err != nil {
		return fmt.Errorf("marshal price quote: %w", err)
	}
	j.Version = 1
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (id, requester_id, document_ref, credential_type, status,
			checklist, price_quote, escrow_ref, sla_deadline, sla_breached, version,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, uuid.UUID(j.ID), uuid.UUID(j.RequesterID), string(j.DocumentRef),
		string(j.CredentialType), string(j.Status), checklist, quote,
		string(j.EscrowRef), j.SLADeadline, j.SLABreached, j.Version,
		j.CreatedAt, j.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.JobID) (*VerificationJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, uuid.UUID(id))
	return scanJob(row)
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, id domain.JobID, expectedVersion int64, mutate Mutator) (*VerificationJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cas: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
	current, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, sentinel.ErrVersionMismatch
	}
	if err := mutate(current); err != nil {
		return nil, err
	}
	current.Version = expectedVersion + 1

	claim, err := marshalNullable(current.Claim)
	if err != nil {
		return nil, fmt.Errorf("marshal claim: %w", err)
	}
	decision, err := marshalNullable(current.Decision)
	if err != nil {
		return nil, fmt.Errorf("marshal decision: %w", err)
	}
	checklist, err := json.Marshal(current.Checklist)
	if err != nil {
		return nil, fmt.Errorf("marshal checklist: %w", err)
	}

	var assignedVerifier *uuid.UUID
	if current.AssignedVerifierID != nil {
		v := uuid.UUID(*current.AssignedVerifierID)
		assignedVerifier = &v
	}
	var disputeRef *uuid.UUID
	if current.DisputeRef != nil {
		v := uuid.UUID(*current.DisputeRef)
		disputeRef = &v
	}

	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status=$2, assigned_verifier_id=$3, claim=$4, checklist=$5,
			decision=$6, dispute_ref=$7, sla_breached=$8, version=$9, updated_at=$10
		WHERE id=$1 AND version=$11
	`, uuid.UUID(id), string(current.Status), assignedVerifier, claim, checklist,
		decision, disputeRef, current.SLABreached, current.Version,
		current.UpdatedAt, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, sentinel.ErrVersionMismatch
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cas: %w", err)
	}
	return current, nil
}

func (s *PostgresStore) ListSubmitted(ctx context.Context, credType domain.CredentialType) ([]*VerificationJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'submitted' AND credential_type = $1
		ORDER BY created_at ASC, sla_deadline ASC
	`, string(credType))
	if err != nil {
		return nil, fmt.Errorf("list submitted: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *PostgresStore) ListExpiredClaims(ctx context.Context, now time.Time) ([]*VerificationJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE claim IS NOT NULL AND (claim->>'expires_at')::timestamptz < $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list expired claims: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *PostgresStore) ListSLABreaches(ctx context.Context, now time.Time) ([]*VerificationJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status NOT IN ('completed','rejected','disputed')
		  AND sla_breached = false AND sla_deadline < $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list sla breaches: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *Claim:
		if t == nil {
			return nil, nil
		}
	case *Decision:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*VerificationJob, error) {
	var (
		j                VerificationJob
		jobID            uuid.UUID
		requesterID      uuid.UUID
		docRef           string
		credType         string
		status           string
		assignedVerifier *uuid.UUID
		claimRaw         []byte
		checklistRaw     []byte
		quoteRaw         []byte
		escrowRef        string
		decisionRaw      []byte
		disputeRef       *uuid.UUID
	)
	err := row.Scan(&jobID, &requesterID, &docRef, &credType, &status,
		&assignedVerifier, &claimRaw, &checklistRaw, &quoteRaw, &escrowRef,
		&decisionRaw, &disputeRef, &j.SLADeadline, &j.SLABreached, &j.Version,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	j.ID = domain.JobID(jobID)
	j.RequesterID = domain.RequesterID(requesterID)
	j.DocumentRef = document.Ref(docRef)
	j.CredentialType = domain.CredentialType(credType)
	j.Status = Status(status)
	j.EscrowRef = escrow.Ref(escrowRef)
	if assignedVerifier != nil {
		v := domain.VerifierID(*assignedVerifier)
		j.AssignedVerifierID = &v
	}
	if disputeRef != nil {
		d := domain.DisputeID(*disputeRef)
		j.DisputeRef = &d
	}
	if len(claimRaw) > 0 {
		j.Claim = &Claim{}
		if err := json.Unmarshal(claimRaw, j.Claim); err != nil {
			return nil, fmt.Errorf("unmarshal claim: %w", err)
		}
	}
	if len(decisionRaw) > 0 {
		j.Decision = &Decision{}
		if err := json.Unmarshal(decisionRaw, j.Decision); err != nil {
			return nil, fmt.Errorf("unmarshal decision: %w", err)
		}
	}
	if err := json.Unmarshal(checklistRaw, &j.Checklist); err != nil {
		return nil, fmt.Errorf("unmarshal checklist: %w", err)
	}
	if err := json.Unmarshal(quoteRaw, &j.PriceQuote); err != nil {
		return nil, fmt.Errorf("unmarshal price quote: %w", err)
	}
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*VerificationJob, error) {
	var out []*VerificationJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
