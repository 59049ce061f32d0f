package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
)

// PostgresStore persists disputes in PostgreSQL. A partial unique index on
// job_id over unresolved rows backs up the one-live-dispute rule the job
// record already enforces.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const disputeColumns = `id, job_id, filed_by, filed_by_role, reason, status,
	resolution, filed_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, d *Dispute) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO disputes (id, job_id, filed_by, filed_by_role, reason, status,
			filed_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, uuid.UUID(d.ID), uuid.UUID(d.JobID), d.FiledBy, string(d.FiledByRole),
		d.Reason, string(d.Status), d.FiledAt, d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.DisputeID) (*Dispute, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, uuid.UUID(id))
	return scanDispute(row)
}

func (s *PostgresStore) GetByJob(ctx context.Context, jobID domain.JobID) (*Dispute, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE job_id = $1
		ORDER BY filed_at DESC LIMIT 1`, uuid.UUID(jobID))
	return scanDispute(row)
}

func (s *PostgresStore) Update(ctx context.Context, d *Dispute) error {
	var resolution []byte
	if d.Resolution != nil {
		var err error
		resolution, err = json.Marshal(d.Resolution)
		if err != nil {
			return fmt.Errorf("marshal resolution: %w", err)
		}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE disputes SET status=$2, resolution=$3, updated_at=$4 WHERE id=$1
	`, uuid.UUID(d.ID), string(d.Status), resolution, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]*Dispute, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE status != $1 ORDER BY filed_at`,
		string(StatusResolved))
	if err != nil {
		return nil, fmt.Errorf("list open disputes: %w", err)
	}
	defer rows.Close()

	var open []*Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		open = append(open, d)
	}
	return open, rows.Err()
}

func scanDispute(row pgx.Row) (*Dispute, error) {
	var (
		d          Dispute
		id, jobID  uuid.UUID
		role       string
		status     string
		resolution []byte
	)
	err := row.Scan(&id, &jobID, &d.FiledBy, &role, &d.Reason, &status,
		&resolution, &d.FiledAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan dispute: %w", err)
	}
	d.ID = domain.DisputeID(id)
	d.JobID = domain.JobID(jobID)
	d.FiledByRole = domain.Role(role)
	d.Status = Status(status)
	if len(resolution) > 0 {
		d.Resolution = &Resolution{}
		if err := json.Unmarshal(resolution, d.Resolution); err != nil {
			return nil, fmt.Errorf("unmarshal resolution: %w", err)
		}
	}
	return &d, nil
}
