package memory

import (
	"context"
	"math"
	"sync"

	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

// AnalysisRepository keeps records in process memory.
type AnalysisRepository struct {
	mu      sync.RWMutex
	lastID  domain.ID
	records map[domain.ID]domain.Record
	order   []domain.ID
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{records: make(map[domain.ID]domain.Record)}
}

// Save assigns the next ID under the write lock.
func (r *AnalysisRepository) Save(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, &domain.PersistenceError{Op: "save", Err: err}
	}
	if rec.Persisted() {
		return domain.Record{}, &domain.PersistenceError{Op: "save", Err: domain.ErrAlreadyPersisted}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	rec.ID = r.lastID
	r.records[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	return rec, nil
}

func (r *AnalysisRepository) FindByID(ctx context.Context, id domain.ID) (domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.Record{}, &domain.NotFoundError{ID: id}
	}
	return rec, nil
}

// Paginate returns records newest first.
func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int) ([]domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if page-1 > math.MaxInt/pageSize {
		return []domain.Record{}, nil
	}
	offset := (page - 1) * pageSize
	if offset < 0 || offset >= len(r.order) {
		return []domain.Record{}, nil
	}
	out := make([]domain.Record, 0, min(pageSize, len(r.order)-offset))
	for i := len(r.order) - 1 - offset; i >= 0 && len(out) < pageSize; i-- {
		out = append(out, r.records[r.order[i]])
	}
	return out, nil
}

func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.order)), nil
}
