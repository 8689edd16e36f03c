package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

const insertQuery = `
INSERT INTO image_analysis
  (file_name, analysis_type, target_object, result, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id;
`

var recordColumns = []string{"id", "file_name", "analysis_type", "target_object", "result", "created_at"}

func newMockRepo(t *testing.T) (*AnalysisRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewAnalysisRepository(db), mock
}

func TestSaveReturningID(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec, err := domain.NewRecord("photo1.jpg", domain.TypeObjectDetection, "keys",
		"Found 2 instance(s) of 'keys' in the image.", time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("photo1.jpg", "OBJECT_DETECTION", "keys", rec.Result, rec.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	saved, err := repo.Save(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(7), saved.ID)
	assert.Equal(t, rec.CreatedAt, saved.CreatedAt)
}

func TestSaveGeneralStoresNullTarget(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec, err := domain.NewRecord("room.png", domain.TypeGeneralAnalysis, "",
		"The following objects were found in the image:\n- cup\n- pen\n", time.Now())
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("room.png", "GENERAL_ANALYSIS", nil, rec.Result, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	saved, err := repo.Save(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(1), saved.ID)
}

func TestSaveInsertFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec, err := domain.NewRecord("room.png", domain.TypeGeneralAnalysis, "", "- cup\n", time.Now())
	require.NoError(t, err)
	boom := errors.New(`relation "image_analysis" does not exist`)

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).WillReturnError(boom)

	_, err = repo.Save(context.Background(), rec)
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, boom)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insert", perr.Op)
}

func TestSaveRejectsPersistedRecord(t *testing.T) {
	repo, _ := newMockRepo(t)
	rec := domain.Record{ID: 3, FileName: "room.png", AnalysisType: domain.TypeGeneralAnalysis}

	_, err := repo.Save(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, domain.ErrAlreadyPersisted)
}

func TestFindByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM image_analysis WHERE id=$1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(7), "room.png", "GENERAL_ANALYSIS", nil, "- cup\n", created))

	got, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(7), got.ID)
	assert.Equal(t, domain.TypeGeneralAnalysis, got.AnalysisType)
	_, ok := got.TargetObject.Get()
	assert.False(t, ok)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestFindByIDMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM image_analysis WHERE id=$1")).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrNotFound)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.ID(42), nf.ID)
}

func TestPaginate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(1), "a.png", "OBJECT_DETECTION", "cup", "Object 'cup' was not found in the image.", now))

	got, err := repo.Paginate(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.SomeTarget("cup"), got[0].TargetObject)
}

func TestPaginateScanFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(5, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := repo.Paginate(context.Background(), 2, 5)
	assert.Error(t, err)
}

func TestPaginateFarPageSkipsQuery(t *testing.T) {
	repo, _ := newMockRepo(t)

	got, err := repo.Paginate(context.Background(), 1<<60, 16)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM image_analysis")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
