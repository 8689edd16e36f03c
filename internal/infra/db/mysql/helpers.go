package mysql

import (
	"database/sql"

	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

// nullTarget maps an absent target to SQL NULL
func nullTarget(t domain.TargetObject) sql.NullString {
	v, ok := t.Get()
	return sql.NullString{String: v, Valid: ok}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.Record, error) {
	var (
		a      domain.Record
		id     int64
		typ    string
		target sql.NullString
	)
	if err := s.Scan(&id, &a.FileName, &typ, &target, &a.Result, &a.CreatedAt); err != nil {
		return domain.Record{}, err
	}
	a.ID = domain.ID(id)
	a.AnalysisType = domain.Type(typ)
	a.CreatedAt = a.CreatedAt.UTC()
	if target.Valid {
		a.TargetObject = domain.SomeTarget(target.String)
	}
	return a, nil
}
