package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerylCAtieno/airline-extractor/internal/airline"
	"github.com/BerylCAtieno/airline-extractor/internal/config"
	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/engine"
	"github.com/BerylCAtieno/airline-extractor/internal/export"
	"github.com/BerylCAtieno/airline-extractor/internal/metrics"
	"github.com/BerylCAtieno/airline-extractor/internal/models"
	"github.com/BerylCAtieno/airline-extractor/internal/pipeline"
	"github.com/BerylCAtieno/airline-extractor/internal/repository"
	"github.com/BerylCAtieno/airline-extractor/internal/storage"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

const (
	MessageNoData    = "no data found"
	MessageCompleted = "extraction completed"

	defaultListLimit = 50
	maxListLimit     = 500
)

type ExtractionService interface {
	Extract(ctx context.Context, req *models.ExtractionRequest) (*models.ExtractionResult, error)
	GetExtraction(ctx context.Context, id string) (*models.Extraction, error)
	ListExtractions(ctx context.Context, airline string, limit int) ([]*models.Extraction, error)
	DownloadExport(ctx context.Context, id string) (*models.ExportFile, error)
	Airlines(ctx context.Context) ([]models.AirlineInfo, error)
}

type extractionService struct {
	engine   *engine.Engine
	pipeline *pipeline.Pipeline
	repo     repository.Repository
	storage  storage.Storage
	metrics  *metrics.Metrics
	cfg      *config.Config
	logger   *utils.Logger
	now      func() time.Time
}

func NewService(
	eng *engine.Engine,
	repo repository.Repository,
	store storage.Storage,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *utils.Logger,
) ExtractionService {
	return &extractionService{
		engine:   eng,
		pipeline: pipeline.New(eng, cfg.ExtractWorkers, logger),
		repo:     repo,
		storage:  store,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *extractionService) Extract(ctx context.Context, req *models.ExtractionRequest) (*models.ExtractionResult, error) {
	code, err := airline.ParseCode(req.Airline)
	if err != nil {
		return nil, utils.NewBadRequestError(fmt.Sprintf("Unsupported airline '%s'. Use G3, AD or JJ", req.Airline))
	}
	if len(req.Files) == 0 {
		return nil, utils.NewBadRequestError("No files provided")
	}
	if len(req.Files) > s.cfg.MaxFiles {
		return nil, utils.NewBadRequestError(fmt.Sprintf("Too many files: at most %d per request", s.cfg.MaxFiles))
	}

	docs := make([]decoder.RawDocument, len(req.Files))
	for i, f := range req.Files {
		docs[i] = decoder.RawDocument{Filename: f.Filename, Data: f.Data}
	}

	res, err := s.pipeline.Run(ctx, pipeline.Request{Airline: code, Documents: docs})
	if err != nil {
		s.metrics.Run(string(code), runOutcome(err), 0, 0)
		return nil, s.pipelineError(code, err)
	}
	s.recordDocuments(res)

	workbook, err := export.Workbook(res.Table)
	if err != nil {
		s.logger.Error("Failed to build workbook", "error", err, "airline", code)
		s.metrics.Run(string(code), metrics.OutcomeFailed, 0, res.Elapsed)
		return nil, utils.NewInternalError("Failed to build export")
	}

	now := s.now().UTC()
	id := utils.GenerateID()
	filename := export.Filename(string(code), now)
	key := storage.ExportKey(id, filename)

	if err := s.storage.Upload(ctx, key, workbook, export.ContentType); err != nil {
		s.logger.Error("Failed to store workbook", "error", err, "key", key)
		s.metrics.Run(string(code), metrics.OutcomeFailed, 0, res.Elapsed)
		return nil, utils.NewInternalError("Failed to store export")
	}

	failures, warnings := issues(res.Failures), issues(res.Warnings)
	status := models.StatusCompleted
	message := MessageCompleted
	if res.NoData() {
		status = models.StatusNoData
		message = MessageNoData
	}

	run := &models.Extraction{
		ID:              id,
		Airline:         string(code),
		Status:          status,
		Documents:       res.Documents,
		FailedDocuments: len(res.Failures),
		EmptyDocuments:  len(res.Warnings),
		TotalRows:       res.Table.Len(),
		Columns:         res.Table.Columns(),
		Issues:          append(failures, warnings...),
		ExportKey:       key,
		ExportFilename:  filename,
		ExportSize:      int64(len(workbook)),
		DurationMS:      res.Elapsed.Milliseconds(),
		CreatedAt:       now,
	}
	if err := s.repo.Create(ctx, run); err != nil {
		s.logger.Error("Failed to save extraction", "error", err, "id", id)
		_ = s.storage.Delete(ctx, key)
		s.metrics.Run(string(code), metrics.OutcomeFailed, 0, res.Elapsed)
		return nil, utils.NewInternalError("Failed to save extraction")
	}

	outcome := metrics.OutcomeOK
	if res.NoData() {
		outcome = metrics.OutcomeNoData
	}
	s.metrics.Run(string(code), outcome, res.Table.Len(), res.Elapsed)

	preview := table.Preview(res.Table, s.cfg.PreviewLimit)

	s.logger.Info("Extraction completed",
		"id", id,
		"airline", code,
		"rows", res.Table.Len(),
		"failures", len(failures),
		"warnings", len(warnings))

	return &models.ExtractionResult{
		Response: &models.ExtractionResponse{
			ID:             id,
			Airline:        string(code),
			Columns:        columns(res.Table),
			Rows:           preview.Rows(),
			TotalRows:      res.Table.Len(),
			PreviewRows:    preview.Len(),
			Truncated:      preview.Len() < res.Table.Len(),
			Documents:      res.Documents,
			Failures:       failures,
			Warnings:       warnings,
			ExportFilename: filename,
			CreatedAt:      now,
			Message:        message,
		},
		Workbook: workbook,
	}, nil
}

func (s *extractionService) GetExtraction(ctx context.Context, id string) (*models.Extraction, error) {
	run, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get extraction", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve extraction")
	}
	if run == nil {
		return nil, utils.NewNotFoundError("Extraction not found")
	}
	return run, nil
}

func (s *extractionService) ListExtractions(ctx context.Context, airlineCode string, limit int) ([]*models.Extraction, error) {
	if airlineCode != "" {
		code, err := airline.ParseCode(airlineCode)
		if err != nil {
			return nil, utils.NewBadRequestError(fmt.Sprintf("Unsupported airline '%s'", airlineCode))
		}
		airlineCode = string(code)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	runs, err := s.repo.List(ctx, airlineCode, limit)
	if err != nil {
		s.logger.Error("Failed to list extractions", "error", err)
		return nil, utils.NewInternalError("Failed to list extractions")
	}
	return runs, nil
}

func (s *extractionService) DownloadExport(ctx context.Context, id string) (*models.ExportFile, error) {
	run, err := s.GetExtraction(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Download(ctx, run.ExportKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, utils.NewNotFoundError("Export not found")
	}
	if err != nil {
		s.logger.Error("Failed to download export", "error", err, "key", run.ExportKey)
		return nil, utils.NewInternalError("Failed to retrieve export")
	}

	return &models.ExportFile{
		Filename:    run.ExportFilename,
		ContentType: export.ContentType,
		Data:        data,
	}, nil
}

func (s *extractionService) Airlines(ctx context.Context) ([]models.AirlineInfo, error) {
	env, err := s.engine.Environment(ctx)
	if err != nil {
		return nil, s.pipelineError("", err)
	}

	var out []models.AirlineInfo
	for _, x := range env.Extractors() {
		out = append(out, models.AirlineInfo{
			Code:    string(x.Airline()),
			Name:    x.Name(),
			Kind:    string(x.Kind()),
			Columns: x.Schema().Columns(),
		})
	}
	return out, nil
}

// pipelineError maps a failed run to the status the client sees.
func (s *extractionService) pipelineError(code airline.Code, err error) error {
	switch {
	case errors.Is(err, airline.ErrUnknownAirline):
		return utils.NewBadRequestError(fmt.Sprintf("Unsupported airline '%s'", code))
	case errors.Is(err, pipeline.ErrNoDocuments):
		return utils.NewBadRequestError("No files provided")
	case errors.Is(err, engine.ErrRuntimeUnavailable):
		s.logger.Error("Extraction runtime unavailable", "error", err)
		return utils.NewUnavailableError("Extraction runtime unavailable, try again", err)
	case errors.Is(err, pipeline.ErrAllDocumentsFailed):
		s.logger.Warn("All documents failed", "airline", code, "error", err)
		return utils.NewUnprocessableError("No document could be processed", err)
	case errors.Is(err, table.ErrSchemaMismatch):
		s.logger.Error("Aggregation failed", "airline", code, "error", err)
		return utils.NewUnprocessableError("Documents produced incompatible tables", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return utils.NewUnavailableError("Request cancelled", err)
	default:
		s.logger.Error("Extraction failed", "airline", code, "error", err)
		return utils.NewInternalError("Extraction failed")
	}
}

func (s *extractionService) recordDocuments(res *pipeline.Result) {
	airlineCode := string(res.Airline)
	for _, f := range res.Failures {
		s.metrics.Document(airlineCode, string(f.Stage))
	}
	for range res.Warnings {
		s.metrics.Document(airlineCode, "empty")
	}
	for range res.Succeeded() - len(res.Warnings) {
		s.metrics.Document(airlineCode, "ok")
	}
}

func runOutcome(err error) string {
	if errors.Is(err, engine.ErrRuntimeUnavailable) {
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeRejected
}

func issues(errs []*pipeline.DocumentError) []models.DocumentIssue {
	out := make([]models.DocumentIssue, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.DocumentIssue{
			Filename: e.Filename,
			Stage:    string(e.Stage),
			Error:    e.Err.Error(),
			Warning:  errors.Is(e, pipeline.ErrNoPatternMatched),
		})
	}
	return out
}

// columns never returns nil so the JSON always carries an array.
func columns(t *table.Table) []string {
	if cols := t.Columns(); cols != nil {
		return cols
	}
	return []string{}
}
