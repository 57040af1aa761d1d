package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/model"
)

const exportSheet = "Results"

var exportHeader = []interface{}{
	"Student", "Email", "Test", "Score", "Total Marks", "Accuracy (%)",
	"Time Taken (s)", "Violations", "Reason", "Completed At",
}

// ResultService serves read-only views over recorded results.
type ResultService struct {
	results     ResultStore
	recentLimit int
	log         zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(results ResultStore, cfg *config.Config, log zerolog.Logger) *ResultService {
	return &ResultService{
		results:     results,
		recentLimit: cfg.AdminResultsLimit,
		log:         log.With().Str("component", "result_service").Logger(),
	}
}

// ListRecent returns the most recent results across all students.
func (s *ResultService) ListRecent(ctx context.Context) ([]model.ResultListItem, error) {
	items, err := s.results.ListRecent(ctx, s.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent results: %w", err)
	}
	if items == nil {
		items = []model.ResultListItem{}
	}
	return items, nil
}

// ListForUser returns a student's own attempt history.
func (s *ResultService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.ResultListItem, error) {
	items, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user results: %w", err)
	}
	if items == nil {
		items = []model.ResultListItem{}
	}
	return items, nil
}

// ExportTestResults writes every result of a test to w as an XLSX workbook.
func (s *ResultService) ExportTestResults(ctx context.Context, testID uuid.UUID, w io.Writer) error {
	items, err := s.results.ListByTest(ctx, testID)
	if err != nil {
		return fmt.Errorf("list test results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, it := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			it.StudentName, it.StudentEmail, it.TestTitle, it.Score, it.TotalMarks,
			fmt.Sprintf("%.2f", it.Accuracy), it.TimeTakenSeconds, it.ViolationCount,
			string(it.Reason), it.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.log.Info().Str("test_id", testID.String()).Int("rows", len(items)).Msg("Results exported")
	return nil
}
