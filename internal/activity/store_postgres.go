package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"verza/pkg/domain"
)

// PostgresStore persists activity entries in an append-only table with a
// bigserial sequence.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal metadata: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO job_activity (job_id, event, from_status, to_status, actor, ts, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING seq
	`, uuid.UUID(entry.JobID), string(entry.Event), entry.From, entry.To,
		entry.Actor, entry.Timestamp, metadata).Scan(&entry.Seq)
	if err != nil {
		return Entry{}, fmt.Errorf("append activity: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListByJob(ctx context.Context, jobID domain.JobID, afterSeq int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT seq, event, from_status, to_status, actor, ts, metadata
		FROM job_activity
		WHERE job_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`, uuid.UUID(jobID), afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{JobID: jobID}
		var metadata []byte
		if err := rows.Scan(&e.Seq, &e.Event, &e.From, &e.To, &e.Actor, &e.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
