package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-intelligence/pkg/utils"
)

// Schema creates the calls table. priority_score is denormalized from the
// decision document so List can sort on an index.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
  id               TEXT PRIMARY KEY,
  workspace_id     TEXT NOT NULL,
  audio_filename   TEXT NOT NULL DEFAULT '',
  language         TEXT NOT NULL DEFAULT '',
  duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
  transcript       TEXT NOT NULL,
  segments         JSONB NOT NULL DEFAULT '[]',
  signals          JSONB NOT NULL,
  recommendation   JSONB NOT NULL,
  decision         JSONB NOT NULL,
  priority_score   INT NOT NULL,
  status           TEXT NOT NULL,
  review_notes     TEXT NOT NULL DEFAULT '',
  reviewed_by      TEXT NOT NULL DEFAULT '',
  reviewed_at      TIMESTAMPTZ,
  created_at       TIMESTAMPTZ NOT NULL,
  updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS calls_workspace_priority_idx
  ON calls (workspace_id, priority_score DESC, created_at DESC);
CREATE INDEX IF NOT EXISTS calls_pending_created_idx
  ON calls (created_at) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS calls_workspace_status_idx
  ON calls (workspace_id, status);
`

const callColumns = `id, workspace_id, audio_filename, language, duration_seconds, transcript, segments,
signals, recommendation, decision, status, review_notes, reviewed_by, reviewed_at, created_at, updated_at`

// PostgresRepo stores calls through database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.ApplySchema(ctx, r.db, "calls", Schema)
}

func (r *PostgresRepo) Insert(ctx context.Context, c Call) error {
	segs, err := json.Marshal(c.Segments)
	if err != nil {
		return err
	}
	sig, err := json.Marshal(c.Signals)
	if err != nil {
		return err
	}
	rec, err := json.Marshal(c.Recommendation)
	if err != nil {
		return err
	}
	dec, err := json.Marshal(c.Decision)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO calls (
  id, workspace_id, audio_filename, language, duration_seconds, transcript, segments,
  signals, recommendation, decision, priority_score, status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)
`
	_, err = r.db.ExecContext(ctx, q,
		c.ID,
		c.WorkspaceID,
		c.AudioFilename,
		c.Language,
		c.DurationSeconds,
		c.Transcript,
		string(segs),
		string(sig),
		string(rec),
		string(dec),
		c.Decision.PriorityScore,
		string(c.Status),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Call, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE workspace_id = $1 AND id = $2`
	c, err := scanCall(r.db.QueryRowContext(ctx, q, workspaceID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Call, error) {
	f = f.normalized()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + callColumns + ` FROM calls WHERE workspace_id = $1`)
	args := []any{f.WorkspaceID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	args = append(args, f.Limit, f.Offset)
	fmt.Fprintf(&sb, " ORDER BY priority_score DESC, created_at DESC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return r.query(ctx, sb.String(), args...)
}

func (r *PostgresRepo) ListAll(ctx context.Context, workspaceID string) ([]Call, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE workspace_id = $1`
	return r.query(ctx, q, workspaceID)
}

func (r *PostgresRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]Call, error) {
	if limit <= 0 {
		limit = MaxListLimit
	}
	q := `SELECT ` + callColumns + ` FROM calls WHERE status = $1 AND created_at <= $2 ORDER BY created_at ASC, id ASC LIMIT $3`
	return r.query(ctx, q, string(StatusPending), createdBefore, limit)
}

// UpdateStatus locks the row, checks the expected status and writes the
// review in one transaction so two concurrent reviews cannot both succeed.
func (r *PostgresRepo) UpdateStatus(ctx context.Context, workspaceID, id string, u StatusUpdate) (Call, error) {
	const lock = `SELECT status FROM calls WHERE workspace_id = $1 AND id = $2 FOR UPDATE`
	const update = `
UPDATE calls
SET status = $3, reviewed_by = $4, review_notes = $5, reviewed_at = $6, updated_at = $6
WHERE workspace_id = $1 AND id = $2
RETURNING ` + callColumns

	var out Call
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var cur string
		if err := tx.QueryRowContext(ctx, lock, workspaceID, id).Scan(&cur); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if Status(cur) != u.From {
			return ErrInvalidTransition
		}
		c, err := scanCall(tx.QueryRowContext(ctx, update, workspaceID, id, string(u.To), u.ReviewedBy, u.Notes, u.At))
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Call, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(s rowScanner) (Call, error) {
	var (
		c                   Call
		status              string
		segs, sig, rec, dec []byte
		reviewedAt          sql.NullTime
	)
	if err := s.Scan(
		&c.ID,
		&c.WorkspaceID,
		&c.AudioFilename,
		&c.Language,
		&c.DurationSeconds,
		&c.Transcript,
		&segs,
		&sig,
		&rec,
		&dec,
		&status,
		&c.ReviewNotes,
		&c.ReviewedBy,
		&reviewedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Call{}, err
	}
	c.Status = Status(status)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		c.ReviewedAt = &t
	}
	for _, doc := range []struct {
		raw []byte
		dst any
	}{{segs, &c.Segments}, {sig, &c.Signals}, {rec, &c.Recommendation}, {dec, &c.Decision}} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return Call{}, fmt.Errorf("calls: decode %s: %w", c.ID, err)
		}
	}
	return c, nil
}
