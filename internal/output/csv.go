// internal/output/csv.go
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// utf8BOM lets spreadsheet tools detect UTF-8 in Korean CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns returns the CSV header in canonical field order
func Columns() []string {
	fields := types.AllFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column()
	}
	return cols
}

// EnhancedColumns returns the enhanced CSV header
func EnhancedColumns() []string {
	return append(Columns(),
		ColumnWordCount, ColumnHashID, ColumnCompleteness, ColumnTier,
		ColumnDays, ColumnHours, ColumnMinutes,
	)
}

// RecordRow flattens a record in Columns order
func RecordRow(rec *types.ServiceRecord) []string {
	fields := types.AllFields()
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = rec.Get(f)
	}
	return row
}

// EnhancedRow flattens a record and its enrichment in EnhancedColumns order
func EnhancedRow(rec *types.ServiceRecord, e pipeline.Enrichment) []string {
	return append(RecordRow(rec),
		strconv.Itoa(e.WordCount),
		e.HashID,
		strconv.FormatFloat(e.Completeness, 'f', 2, 64),
		string(e.Tier),
		optionalInt(e.Duration.Days),
		optionalInt(e.Duration.Hours),
		optionalInt(e.Duration.Minutes),
	)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// WriteCSV writes a BOM-prefixed CSV with header and rows
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecords writes records as CSV
func WriteRecords(w io.Writer, records []*types.ServiceRecord) error {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = RecordRow(rec)
	}
	return WriteCSV(w, Columns(), rows)
}

// WriteRecordsFile writes records to a CSV file, creating parent directories
func WriteRecordsFile(path string, records []*types.ServiceRecord) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteRecords(w, records)
	})
}

// WriteErrorsFile writes only failed records and returns how many there were.
// No file is created when every record succeeded.
func WriteErrorsFile(path string, records []*types.ServiceRecord) (int, error) {
	failed := Failed(records)
	if len(failed) == 0 {
		return 0, nil
	}
	return len(failed), WriteRecordsFile(path, failed)
}

// Failed returns the records whose status is not a success
func Failed(records []*types.ServiceRecord) []*types.ServiceRecord {
	var failed []*types.ServiceRecord
	for _, rec := range records {
		if !rec.ErrorStatus.IsSuccess() {
			failed = append(failed, rec)
		}
	}
	return failed
}

// WriteEnhancedFile writes records with their derived metadata columns
func WriteEnhancedFile(path string, records []*types.ServiceRecord, enrichments []pipeline.Enrichment) error {
	if len(records) != len(enrichments) {
		return fmt.Errorf("enrichment count %d does not match record count %d", len(enrichments), len(records))
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = EnhancedRow(rec, enrichments[i])
	}
	return writeFile(path, func(w io.Writer) error {
		return WriteCSV(w, EnhancedColumns(), rows)
	})
}

// WriteSimilarFile writes the similar-name report
func WriteSimilarFile(path string, pairs []pipeline.SimilarPair) error {
	header := []string{"idx1", "idx2", "name1", "name2", "similarity", "dept1", "dept2"}
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{
			strconv.Itoa(p.Index1),
			strconv.Itoa(p.Index2),
			p.Name1,
			p.Name2,
			strconv.FormatFloat(p.Similarity, 'f', 4, 64),
			p.Dept1,
			p.Dept2,
		}
	}
	return writeFile(path, func(w io.Writer) error {
		return WriteCSV(w, header, rows)
	})
}

// ReadRecordsFile loads records from a CSV written by WriteRecords.
// Unknown columns are ignored.
func ReadRecordsFile(path string) ([]*types.ServiceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	fields := make([]types.Field, len(rows[0]))
	known := make([]bool, len(rows[0]))
	for i, col := range rows[0] {
		fields[i], known[i] = types.FieldByColumn(col)
	}

	records := make([]*types.ServiceRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := &types.ServiceRecord{}
		for i, val := range row {
			if i < len(fields) && known[i] {
				rec.Set(fields[i], val)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return write(file)
}
