// internal/output/types.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// Output file names
const (
	MainFile       = "정부24_민원목록.csv"
	ErrorsFile     = "정부24_민원목록_오류.csv"
	enhancedFile   = "정부24_민원목록_품질개선_%s.csv"
	finetuneFile   = "정부24_민원_파인튜닝_%s.jsonl"
	reportFile     = "정부24_민원_품질보고서_%s.html"
	workbookFile   = "정부24_민원목록_%s.xlsx"
	similarFile    = "중복민원_보고서_%s.csv"
	departmentFile = "정부24_민원목록_%s_%s.csv"
	detailFile     = "정부24_민원상세_%s.csv"
)

// Extra columns of the enhanced CSV
const (
	ColumnWordCount    = "설명_단어수"
	ColumnHashID       = "hash_id"
	ColumnCompleteness = "상세정보_충실도"
	ColumnTier         = "신뢰도"
	ColumnDays         = "처리기간_일수"
	ColumnHours        = "처리기간_시간"
	ColumnMinutes      = "처리기간_분"
)

// EnhancedFileName returns the timestamped enhanced CSV name
func EnhancedFileName(stamp string) string { return fmt.Sprintf(enhancedFile, stamp) }

// FinetuneFileName returns the timestamped JSONL name
func FinetuneFileName(stamp string) string { return fmt.Sprintf(finetuneFile, stamp) }

// ReportFileName returns the timestamped HTML report name
func ReportFileName(stamp string) string { return fmt.Sprintf(reportFile, stamp) }

// WorkbookFileName returns the timestamped workbook name
func WorkbookFileName(stamp string) string { return fmt.Sprintf(workbookFile, stamp) }

// SimilarFileName returns the timestamped similar-name report name
func SimilarFileName(stamp string) string { return fmt.Sprintf(similarFile, stamp) }

// DepartmentFileName returns the main CSV name for a department-filtered run
func DepartmentFileName(deptName, deptCode string) string {
	return fmt.Sprintf(departmentFile, deptName, deptCode)
}

// DetailFileName returns the CSV name for directly extracted detail pages
func DetailFileName(stamp string) string { return fmt.Sprintf(detailFile, stamp) }

// Sink receives the final record set after file outputs are written
type Sink interface {
	Name() string
	Write(ctx context.Context, records []*types.ServiceRecord) (int, error)
	Close() error
}

// Summary describes what WriteAll produced
type Summary struct {
	Files   []string       `json:"files"`
	Report  *QualityReport `json:"report"`
	Similar int            `json:"similar_pairs"`
	Sinks   map[string]int `json:"sinks,omitempty"`
}
