// Package export produces an XLSX summary of a grading run.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/takeda-juku/tensaku/internal/grading"
)

// Row summarizes one graded sheet.
type Row struct {
	Filename  string
	MasterID  string
	StudentID string
	Result    *grading.Result
	Warnings  int
}

// Service renders grading summaries as XLSX bytes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// SummaryXLSX returns a workbook with one row per graded sheet.
func (s *Service) SummaryXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Results"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"File",
		"Master ID",
		"Student ID",
		"Score",
		"Max",
		"Questions",
		"Deduction Warnings",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	rowIdx := 2
	for _, r := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowIdx)
			_ = f.SetCellValue(sheet, cell, v)
		}
		score, max := grading.Totals(r.Result)
		write(1, r.Filename)
		write(2, r.MasterID)
		write(3, r.StudentID)
		write(4, score)
		write(5, max)
		write(6, len(r.Result.Questions))
		write(7, r.Warnings)
		rowIdx++
	}

	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", "B", 18)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "D", "F", 10)
	_ = f.SetColWidth(sheet, "G", "G", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
