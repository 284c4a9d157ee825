// internal/output/excel.go
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// Workbook sheet names
const (
	RecordsSheet = "민원목록"
	SummarySheet = "품질요약"
)

// maxCellLength is the Excel limit on characters in a cell
const maxCellLength = 32767

// WriteWorkbook writes the enhanced records and the quality summary to an xlsx file
func WriteWorkbook(path string, records []*types.ServiceRecord, enrichments []pipeline.Enrichment, report *QualityReport) error {
	if len(records) != len(enrichments) {
		return fmt.Errorf("enrichment count %d does not match record count %d", len(enrichments), len(records))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := EnhancedColumns()
	if err := setRow(f, RecordsSheet, 1, header); err != nil {
		return err
	}
	for i, rec := range records {
		if err := setRow(f, RecordsSheet, i+2, EnhancedRow(rec, enrichments[i])); err != nil {
			return err
		}
	}
	if err := styleHeader(f, RecordsSheet, len(header)); err != nil {
		return err
	}
	if err := f.SetPanes(RecordsSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if report != nil {
		if err := writeSummarySheet(f, report); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, report *QualityReport) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]string{
		{"항목", "데이터 수", "비율 (%)"},
		{"총 수집 민원 수", fmt.Sprint(report.Total), ""},
	}
	add := func(prefix string, shares []Share) {
		for _, s := range shares {
			rows = append(rows, []string{prefix + s.Label, fmt.Sprint(s.Count), fmt.Sprintf("%.1f", s.Percent)})
		}
	}
	add("완성도: ", report.Completeness)
	add("신뢰도: ", report.Tiers)
	add("오류 유형: ", report.Statuses)
	add("학습 적합: ", []Share{report.Trainable})
	rows = append(rows, []string{"결론", report.Conclusion(), ""})

	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	return styleHeader(f, SummarySheet, 3)
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		if len(v) > maxCellLength {
			v = truncateRunes(v, maxCellLength)
		}
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// truncateRunes cuts s to at most limit runes
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
