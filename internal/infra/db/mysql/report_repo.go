package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

type ReportRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new analysis. The repository assigns id and created_at.
func (r *ReportRepository) Create(ctx context.Context, ownerID, title, summary string, result report.Payload) (*report.Report, error) {
	const q = `
INSERT INTO analyses (id, owner_id, title, summary, result_json, created_at)
VALUES (?,?,?,?,?,?);
`
	body, err := encodeResult(result)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	createdAt := r.now().Truncate(time.Microsecond)

	if _, err := r.db.ExecContext(ctx, q, id, ownerID, title, summary, body, createdAt); err != nil {
		return nil, err
	}
	if result == nil {
		result = report.Payload{}
	}
	return &report.Report{
		ID:        report.ID(id),
		OwnerID:   ownerID,
		Title:     title,
		Summary:   summary,
		Result:    result,
		CreatedAt: createdAt,
	}, nil
}

// ListByOwner returns the newest analyses first
func (r *ReportRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*report.Report, error) {
	const q = `
SELECT id, owner_id, title, summary, result_json, created_at
FROM analyses
WHERE owner_id=?
ORDER BY created_at DESC, id DESC
LIMIT ?;
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

// Get returns sql.ErrNoRows when the analysis does not exist or belongs to someone else.
func (r *ReportRepository) Get(ctx context.Context, ownerID string, id report.ID) (*report.Report, error) {
	const q = `
SELECT id, owner_id, title, summary, result_json, created_at
FROM analyses
WHERE owner_id=? AND id=?;
`
	return scanReport(r.db.QueryRowContext(ctx, q, ownerID, string(id)))
}

func (r *ReportRepository) UpdateTitle(ctx context.Context, ownerID string, id report.ID, title string) error {
	const q = `UPDATE analyses SET title=? WHERE owner_id=? AND id=?;`
	res, err := r.db.ExecContext(ctx, q, title, ownerID, string(id))
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r *ReportRepository) Delete(ctx context.Context, ownerID string, id report.ID) error {
	const q = `DELETE FROM analyses WHERE owner_id=? AND id=?;`
	res, err := r.db.ExecContext(ctx, q, ownerID, string(id))
	if err != nil {
		return err
	}
	return affectedOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*report.Report, error) {
	var (
		a   report.Report
		id  string
		raw []byte
	)
	if err := s.Scan(&id, &a.OwnerID, &a.Title, &a.Summary, &raw, &a.CreatedAt); err != nil {
		return nil, err
	}
	result, err := decodeResult(raw)
	if err != nil {
		return nil, err
	}
	a.ID = report.ID(id)
	a.Result = result
	return &a, nil
}
