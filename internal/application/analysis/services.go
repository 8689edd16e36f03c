package analysis

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/bryanwahyu/argus/internal/application"
	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements use-cases untuk analysis.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	Repo   domain.Repository
	Clock  application.Clock
	Rand   application.RandSource
	Logger *slog.Logger
}

// AnalyzeCommand untuk trigger analysis
type AnalyzeCommand struct {
	FileName     string
	AnalysisType domain.Type
	TargetObject string
}

// AnalyzeObjectDetection looks for targetObject in the named image.
func (s *Service) AnalyzeObjectDetection(ctx context.Context, fileName, targetObject string) (domain.Record, error) {
	return s.Analyze(ctx, AnalyzeCommand{
		FileName:     fileName,
		AnalysisType: domain.TypeObjectDetection,
		TargetObject: targetObject,
	})
}

// AnalyzeGeneral lists the objects seen in the named image.
func (s *Service) AnalyzeGeneral(ctx context.Context, fileName string) (domain.Record, error) {
	return s.Analyze(ctx, AnalyzeCommand{
		FileName:     fileName,
		AnalysisType: domain.TypeGeneralAnalysis,
	})
}

// Analyze runs validate → generate → save and returns the persisted record.
// The first failure is returned unchanged.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (domain.Record, error) {
	if err := domain.Validate(cmd.AnalysisType, cmd.TargetObject); err != nil {
		return domain.Record{}, err
	}

	result, err := domain.Generate(cmd.AnalysisType, cmd.TargetObject, s.Rand.New())
	if err != nil {
		return domain.Record{}, err
	}

	rec, err := domain.NewRecord(cmd.FileName, cmd.AnalysisType, cmd.TargetObject, result, s.Clock.Now())
	if err != nil {
		return domain.Record{}, err
	}

	saved, err := s.Repo.Save(ctx, rec)
	if err != nil {
		s.logger().WarnContext(ctx, "analysis not saved",
			"file_name", cmd.FileName,
			"analysis_type", cmd.AnalysisType,
			"error", err,
		)
		return domain.Record{}, err
	}

	s.logger().DebugContext(ctx, "analysis saved",
		"id", saved.ID,
		"file_name", saved.FileName,
		"analysis_type", saved.AnalysisType,
	)
	return saved, nil
}

// Get ambil 1 analysis by id
func (s *Service) Get(ctx context.Context, id domain.ID) (domain.Record, error) {
	return s.Repo.FindByID(ctx, id)
}

// List returns one page of records, newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) (domain.Page, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total, err := s.Repo.Count(ctx)
	if err != nil {
		return domain.Page{}, err
	}
	out := domain.Page{
		Data:       []domain.Record{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
	// (page-1)*pageSize would overflow; nothing can live that far out.
	if page-1 > math.MaxInt/pageSize {
		return out, nil
	}

	data, err := s.Repo.Paginate(ctx, page, pageSize)
	if err != nil {
		return domain.Page{}, err
	}
	if data != nil {
		out.Data = data
	}
	return out, nil
}

// IsClientError reports whether err is caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
