package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/triplog/expenses/internal/domain/entity"
)

const sheetName = "Expense Report"

// ReportExporter writes a monthly report and its expenses to an xlsx
// workbook
type ReportExporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewReportExporter creates a new ReportExporter
func NewReportExporter(outputDir string, logger *zap.Logger) (*ReportExporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &ReportExporter{outputDir: outputDir, logger: logger}, nil
}

// Export writes the workbook and returns its path
func (e *ReportExporter) Export(report *entity.Report, expenses []*entity.Expense) (string, error) {
	e.logger.Info("Exporting report",
		zap.Int64("report_id", report.ID),
		zap.Int("expenses", len(expenses)))

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to drop default sheet: %w", err)
	}

	e.setCell(f, "A1", "Expense Report")
	e.setCell(f, "A2", "Owner")
	e.setCell(f, "B2", report.OwnerID)
	e.setCell(f, "A3", "Period")
	e.setCell(f, "B3", fmt.Sprintf("%02d/%d", report.Month, report.Year))
	e.setCell(f, "A4", "Status")
	e.setCell(f, "B4", report.Status.String())
	e.setCell(f, "A5", "Total distance (km)")
	e.setCell(f, "B5", report.TotalDistance)
	e.setCell(f, "A6", "Total amount")
	e.setCell(f, "B6", report.TotalExpenseAmount)
	e.setCell(f, "A7", "Reimbursed")
	e.setCell(f, "B7", report.ReimbursedAmount)
	e.setCell(f, "A8", "Pending")
	e.setCell(f, "B8", report.PendingAmount)

	headerRow := 10
	for col, header := range []string{"Date", "Distance (km)", "Rate", "Cost", "Status", "Notes"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		e.setCell(f, cell, header)
	}

	for i, expense := range expenses {
		row := headerRow + 1 + i
		values := []interface{}{
			expense.JourneyDate.Format("2006-01-02"),
			expense.Distance,
			expense.Rate,
			expense.TotalCost,
			expense.Status,
			expense.Notes,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			e.setCell(f, cell, value)
		}
	}

	outputPath := filepath.Join(e.outputDir,
		fmt.Sprintf("report_%s_%d_%02d.xlsx", report.OwnerID, report.Year, report.Month))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Report exported", zap.String("output_path", outputPath))
	return outputPath, nil
}

// setCell sets a cell value, logging failures instead of aborting the export
func (e *ReportExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
