package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/cettopper/exam-portal/internal/model"
)

func TestExportTestResults(t *testing.T) {
	results := &fakeResults{}
	testID := uuid.New()
	for _, score := range []int{4, 6} {
		_ = results.Create(context.Background(), &model.Result{
			UserID:     uuid.New(),
			TestID:     testID,
			Score:      score,
			TotalMarks: 6,
			Accuracy:   float64(score) / 6 * 100,
			Reason:     model.ReasonManual,
		})
	}
	_ = results.Create(context.Background(), &model.Result{UserID: uuid.New(), TestID: uuid.New(), Score: 1})

	svc := NewResultService(results, testConfig(), nopLog)

	var buf bytes.Buffer
	if err := svc.ExportTestResults(context.Background(), testID, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Student" || rows[1][3] != "4" || rows[2][5] != "100.00" {
		t.Fatalf("unexpected sheet contents: %v", rows)
	}
}

func TestListRecentNeverNil(t *testing.T) {
	svc := NewResultService(&fakeResults{}, testConfig(), nopLog)

	items, err := svc.ListRecent(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items == nil {
		t.Fatal("empty listing must be an empty slice for JSON")
	}
}
