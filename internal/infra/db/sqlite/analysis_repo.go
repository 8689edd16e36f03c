package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

const schema = `
CREATE TABLE IF NOT EXISTS image_analysis (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  file_name     TEXT    NOT NULL,
  analysis_type TEXT    NOT NULL,
  target_object TEXT    NULL,
  result        TEXT    NOT NULL,
  created_at    TEXT    NOT NULL
);`

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// EnsureSchema creates the image_analysis table when missing.
func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating image_analysis table: %w", err)
	}
	return nil
}

// Save inserts the record; the ID comes from AUTOINCREMENT.
func (r *AnalysisRepository) Save(ctx context.Context, a domain.Record) (domain.Record, error) {
	if a.Persisted() {
		return domain.Record{}, &domain.PersistenceError{Op: "save", Err: domain.ErrAlreadyPersisted}
	}
	const q = `
INSERT INTO image_analysis (file_name, analysis_type, target_object, result, created_at)
VALUES (?,?,?,?,?);`

	res, err := r.db.ExecContext(ctx, q,
		a.FileName, string(a.AnalysisType), nullTarget(a.TargetObject), a.Result,
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.Record{}, &domain.PersistenceError{Op: "insert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Record{}, &domain.PersistenceError{Op: "last insert id", Err: err}
	}
	a.ID = domain.ID(id)
	return a, nil
}

func (r *AnalysisRepository) FindByID(ctx context.Context, id domain.ID) (domain.Record, error) {
	const q = `
SELECT id, file_name, analysis_type, target_object, result, created_at
FROM image_analysis WHERE id=?;`
	a, err := scanRecord(r.db.QueryRowContext(ctx, q, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, &domain.NotFoundError{ID: id}
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("find analysis %d: %w", id, err)
	}
	return a, nil
}

// Paginate returns a page of records ordered by id desc
func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int) ([]domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if page-1 > math.MaxInt/pageSize {
		return nil, nil
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, file_name, analysis_type, target_object, result, created_at
FROM image_analysis
ORDER BY id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		a, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM image_analysis`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.Record, error) {
	var (
		a       domain.Record
		id      int64
		typ     string
		target  sql.NullString
		created string
	)
	if err := s.Scan(&id, &a.FileName, &typ, &target, &a.Result, &created); err != nil {
		return domain.Record{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.Record{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	a.ID = domain.ID(id)
	a.AnalysisType = domain.Type(typ)
	a.CreatedAt = ts
	if target.Valid {
		a.TargetObject = domain.SomeTarget(target.String)
	}
	return a, nil
}

func nullTarget(t domain.TargetObject) sql.NullString {
	v, ok := t.Get()
	return sql.NullString{String: v, Valid: ok}
}
