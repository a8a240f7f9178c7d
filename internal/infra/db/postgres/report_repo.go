package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

// ReportRepository lets Postgres assign id and created_at through column defaults.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

func (r *ReportRepository) Create(ctx context.Context, ownerID, title, summary string, result report.Payload) (*report.Report, error) {
	const q = `
INSERT INTO analyses (owner_id, title, summary, result_json)
VALUES ($1,$2,$3,$4)
RETURNING id, created_at;
`
	if result == nil {
		result = report.Payload{}
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	a := &report.Report{OwnerID: ownerID, Title: title, Summary: summary, Result: result}
	var id string
	if err := r.db.QueryRowContext(ctx, q, ownerID, title, summary, body).Scan(&id, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ID = report.ID(id)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (r *ReportRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*report.Report, error) {
	const q = `
SELECT id, owner_id, title, summary, result_json, created_at
FROM analyses
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*report.Report{}
	for rows.Next() {
		a, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ReportRepository) Get(ctx context.Context, ownerID string, id report.ID) (*report.Report, error) {
	const q = `
SELECT id, owner_id, title, summary, result_json, created_at
FROM analyses
WHERE owner_id=$1 AND id::text=$2;
`
	return scanReport(r.db.QueryRowContext(ctx, q, ownerID, string(id)))
}

func (r *ReportRepository) UpdateTitle(ctx context.Context, ownerID string, id report.ID, title string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE analyses SET title=$1 WHERE owner_id=$2 AND id::text=$3;`, title, ownerID, string(id))
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r *ReportRepository) Delete(ctx context.Context, ownerID string, id report.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE owner_id=$1 AND id::text=$2;`, ownerID, string(id))
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func scanReport(s interface{ Scan(...any) error }) (*report.Report, error) {
	var (
		a   report.Report
		id  string
		raw []byte
	)
	if err := s.Scan(&id, &a.OwnerID, &a.Title, &a.Summary, &raw, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ID = report.ID(id)
	a.Result = report.Payload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Result); err != nil {
			return nil, fmt.Errorf("decode result_json: %w", err)
		}
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
