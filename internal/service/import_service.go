package service

import (
	"context"
	"io"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

// Import sources used in logs and metrics.
const (
	ImportSourceJSON        = "json"
	ImportSourceSpreadsheet = "spreadsheet"
)

type importReferences interface {
	ResolvePeriod(ctx context.Context, id string) (*models.AcademicPeriod, error)
	Reference(ctx context.Context) (timetable.Reference, error)
	OtherClassRows(ctx context.Context, periodID string, exclude []string) ([]models.TimeSlot, error)
}

// ImportConfig selects how subgroup subjects without a subgroup number are imported.
type ImportConfig struct {
	SubgroupFallback string
}

// ImportService loads externally authored schedules and swaps them in atomically.
type ImportService struct {
	refs    importReferences
	slots   scopeReplacer
	tx      txProvider
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ImportConfig
}

// NewImportService wires the importer.
func NewImportService(refs importReferences, slots scopeReplacer, tx txProvider, metrics *MetricsService, logger *zap.Logger, cfg ImportConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SubgroupFallback != timetable.FallbackFirstRoom {
		cfg.SubgroupFallback = timetable.FallbackSingle
	}
	return &ImportService{refs: refs, slots: slots, tx: tx, metrics: metrics, logger: logger, cfg: cfg}
}

// ImportJSON imports a JSON array of schedule rows.
func (s *ImportService) ImportJSON(ctx context.Context, periodID string, r io.Reader) (*dto.ImportResponse, error) {
	rows, err := timetable.ParseJSON(r)
	if err != nil {
		s.metrics.ObserveImport(ImportSourceJSON, "rejected", 1)
		return nil, err
	}
	return s.importRows(ctx, ImportSourceJSON, periodID, rows, nil)
}

// ImportSpreadsheet imports the first sheet of an xlsx workbook.
func (s *ImportService) ImportSpreadsheet(ctx context.Context, periodID string, r io.Reader) (*dto.ImportResponse, error) {
	rows, warnings, err := timetable.ParseSpreadsheet(r)
	if err != nil {
		s.metrics.ObserveImport(ImportSourceSpreadsheet, "rejected", 1)
		return nil, err
	}
	s.metrics.ObserveImport(ImportSourceSpreadsheet, "skipped", len(warnings))
	return s.importRows(ctx, ImportSourceSpreadsheet, periodID, rows, warnings)
}

// importRows resolves the batch and replaces the schedule of every class it names in one
// transaction. Nothing is written when any row fails to resolve or clashes.
func (s *ImportService) importRows(ctx context.Context, source, periodID string, rows []timetable.ImportRow, warnings []timetable.ImportWarning) (*dto.ImportResponse, error) {
	period, err := s.refs.ResolvePeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	ref, err := s.refs.Reference(ctx)
	if err != nil {
		return nil, err
	}
	result, err := timetable.Normalize(rows, ref, timetable.NormalizeOptions{
		AcademicPeriodID: period.ID,
		SubgroupFallback: s.cfg.SubgroupFallback,
	})
	if err != nil {
		s.metrics.ObserveImport(source, "rejected", len(rows))
		return nil, err
	}
	warnings = append(warnings, result.Warnings...)

	others, err := s.refs.OtherClassRows(ctx, period.ID, result.ClassIDs)
	if err != nil {
		return nil, err
	}
	if conflicts := timetable.DetectConflicts(result.Slots, others); len(conflicts) > 0 {
		s.metrics.ObserveImport(source, "rejected", len(rows))
		return nil, conflictError(conflicts, "imported schedule clashes")
	}

	byClass := make(map[string][]models.TimeSlot, len(result.ClassIDs))
	for _, slot := range result.Slots {
		byClass[slot.ClassID] = append(byClass[slot.ClassID], slot)
	}
	// Scope locks are taken in id order so concurrent imports cannot deadlock.
	lockOrder := append([]string(nil), result.ClassIDs...)
	sort.Strings(lockOrder)
	err = writeInTx(ctx, s.tx, "failed to store imported schedule", func(tx *sqlx.Tx) error {
		for _, classID := range lockOrder {
			if err := s.slots.ReplaceScope(ctx, tx, classID, period.ID, byClass[classID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveImport(source, "failed", len(rows))
		s.logger.Error("timetable import failed", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	s.metrics.ObserveImport(source, "imported", len(result.Slots))
	for _, w := range warnings {
		s.logger.Warn("timetable import warning", zap.String("source", source), zap.Int("line", w.Line), zap.String("message", w.Message))
	}
	s.logger.Info("timetable imported",
		zap.String("source", source),
		zap.String("academic_period_id", period.ID),
		zap.Int("classes", len(result.ClassIDs)),
		zap.Int("rows", len(result.Slots)),
	)
	return &dto.ImportResponse{
		AcademicPeriodID: period.ID,
		Classes:          result.ClassIDs,
		Imported:         len(result.Slots),
		Warnings:         warnings,
	}, nil
}
