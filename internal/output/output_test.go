// internal/output/output_test.go
package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

func sampleRecords() []*types.ServiceRecord {
	return []*types.ServiceRecord{
		{
			Name:        "여권 발급",
			Description: "여권을 새로 발급합니다",
			Department:  "외교부",
			Link:        "https://www.gov.kr/mw/AA020InfoCappView.do?CappBizCD=1",
			Procedure:   "신청 ▶ 접수 ▶ 발급",
			ApplyMethod: "방문 신청",
			Documents:   "신분증, 사진 1매",
			Fee:         "0원",
			Agency:      "외교부 여권과",
			Contact:     "02-123-4567",
			Duration:    "4일",
			ErrorStatus: types.StatusNormal,
			SourceURL:   "https://www.gov.kr/mw/AA020InfoCappView.do?CappBizCD=1",
		},
		{
			Name:         "여권 재발급",
			Department:   "외교부",
			ErrorStatus:  types.StatusMissingRequiredFields,
			ErrorMessage: "설명, 처리절차 누락",
		},
	}
}

func enrichAll(records []*types.ServiceRecord) []pipeline.Enrichment {
	out := make([]pipeline.Enrichment, len(records))
	for i, rec := range records {
		out[i] = pipeline.Enrich(rec)
	}
	return out
}

func TestWriteRecords_BOMAndHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, sampleRecords()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))
	lines := strings.Split(strings.TrimSpace(string(data[len(utf8BOM):])), "\n")
	require.Len(t, lines, 3)

	header := strings.Split(lines[0], ",")
	assert.Equal(t, "민원명", header[0])
	assert.Equal(t, "오류여부", header[21])
	assert.Equal(t, []string{"오류상세", "원본URL"}, header[len(header)-2:])
	assert.Len(t, header, len(types.AllFields()))
}

func TestRecordsFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", MainFile)
	records := sampleRecords()
	require.NoError(t, WriteRecordsFile(path, records))

	got, err := ReadRecordsFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteErrorsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ErrorsFile)

	n, err := WriteErrorsFile(path, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := ReadRecordsFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "여권 재발급", got[0].Name)
	assert.Equal(t, types.StatusMissingRequiredFields, got[0].ErrorStatus)

	other := filepath.Join(dir, "none.csv")
	n, err = WriteErrorsFile(other, sampleRecords()[:1])
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, other)
}

func TestEnhancedRow(t *testing.T) {
	rec := sampleRecords()[0]
	row := EnhancedRow(rec, pipeline.Enrich(rec))
	cols := EnhancedColumns()
	require.Len(t, row, len(cols))

	extra := row[len(types.AllFields()):]
	assert.Equal(t, "3", extra[0])
	assert.Len(t, extra[1], 32)
	assert.Equal(t, "0.78", extra[2])
	assert.Equal(t, string(types.TierHigh), extra[3])
	assert.Equal(t, []string{"4", "", ""}, extra[4:])
}

func TestWriteEnhancedFile_Mismatch(t *testing.T) {
	err := WriteEnhancedFile(filepath.Join(t.TempDir(), "x.csv"), sampleRecords(), nil)
	assert.Error(t, err)
}

func TestWriteSimilarFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SimilarFileName("20250101_000000"))
	pairs := []pipeline.SimilarPair{{Index1: 0, Index2: 3, Name1: "여권 발급", Name2: "여권 재발급", Similarity: 0.9123, Dept1: "외교부", Dept2: "외교부"}}
	require.NoError(t, WriteSimilarFile(path, pairs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(bytes.TrimPrefix(data, utf8BOM))
	assert.True(t, strings.HasPrefix(text, "idx1,idx2,name1,name2,similarity,dept1,dept2\n"))
	assert.Contains(t, text, "0,3,여권 발급,여권 재발급,0.9123,외교부,외교부")
}

func TestConversations(t *testing.T) {
	rec := sampleRecords()[0]

	convs := Conversations(rec, types.TierHigh)
	require.Len(t, convs, 4)
	assert.Equal(t, "'여권 발급' 민원은 어떻게 신청하나요?", convs[0].Messages[0].Content)
	assert.Equal(t, "여권 발급의 신청방법은 다음과 같습니다: 방문 신청", convs[0].Messages[1].Content)
	assert.Equal(t, "여권 발급 신청에 필요한 서류는 다음과 같습니다: 신분증, 사진 1매", convs[1].Messages[1].Content)
	assert.Equal(t, "'여권 발급' 처리 절차가 어떻게 되나요?", convs[2].Messages[0].Content)

	summary := convs[3].Messages[1].Content
	lines := strings.Split(summary, "\n")
	assert.Equal(t, "여권 발급에 관한 상세 정보입니다:", lines[0])
	assert.Contains(t, lines, "- 설명: 여권을 새로 발급합니다")
	assert.Equal(t, "- 문의처: 02-123-4567", lines[len(lines)-1])

	assert.Nil(t, Conversations(rec, types.TierLow))

	sparse := &types.ServiceRecord{Name: "주민등록 등본", ApplyMethod: "온라인", Fee: "무료"}
	convs = Conversations(sparse, types.TierMedium)
	require.Len(t, convs, 1, "summary needs three of the detail fields")
	assert.Equal(t, "user", convs[0].Messages[0].Role)
	assert.Equal(t, "assistant", convs[0].Messages[1].Role)
}

func TestWriteJSONL(t *testing.T) {
	records := sampleRecords()
	records[0].Documents = "신청서 <별지 제1호>"

	var buf bytes.Buffer
	n, err := WriteJSONL(&buf, records, enrichAll(records))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "<별지 제1호>")
	for _, line := range lines {
		var conv Conversation
		require.NoError(t, json.Unmarshal([]byte(line), &conv))
		assert.Len(t, conv.Messages, 2)
	}
}

func TestBuildQualityReport(t *testing.T) {
	records := sampleRecords()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	report := BuildQualityReport(records, enrichAll(records), now)

	assert.Equal(t, 2, report.Total)
	require.Len(t, report.Completeness, 7)
	assert.Equal(t, Share{Label: "민원명", Count: 2, Percent: 100}, report.Completeness[0])
	assert.Equal(t, Share{Label: "설명", Count: 1, Percent: 50}, report.Completeness[1])

	require.Len(t, report.Tiers, 3)
	assert.Equal(t, 1, report.Tiers[0].Count)
	assert.Equal(t, 0, report.Tiers[1].Count)
	assert.Equal(t, 1, report.Tiers[2].Count)

	assert.Len(t, report.Statuses, 2)
	assert.Equal(t, 1, report.Trainable.Count)
	assert.False(t, report.Sufficient())
	assert.Contains(t, report.Conclusion(), "양이 부족합니다")

	report.Trainable.Count = FinetuneMinimum
	assert.Contains(t, report.Conclusion(), "파인튜닝을 진행하세요")
}

func TestBuildQualityReport_Empty(t *testing.T) {
	report := BuildQualityReport(nil, nil, time.Now())
	assert.Zero(t, report.Total)
	for _, s := range report.Completeness {
		assert.Zero(t, s.Percent)
	}
}

func TestWriteReport(t *testing.T) {
	records := sampleRecords()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, BuildQualityReport(records, enrichAll(records), now)))

	html := buf.String()
	assert.Contains(t, html, "<title>정부24 민원 데이터 품질 보고서</title>")
	assert.Contains(t, html, "생성일시: 2025-05-01 09:30:00")
	assert.Contains(t, html, "총 수집 민원 수: 2개")
	assert.Contains(t, html, "<td>2 / 2</td>")
	assert.Contains(t, html, "50.0%")
	assert.Contains(t, html, "missing_required_fields")
	assert.Contains(t, html, "5. 인공지능 학습 적합성")
}

func TestWriteWorkbook(t *testing.T) {
	records := sampleRecords()
	enrichments := enrichAll(records)
	path := filepath.Join(t.TempDir(), WorkbookFileName("20250501_093000"))
	report := BuildQualityReport(records, enrichments, time.Now())

	require.NoError(t, WriteWorkbook(path, records, enrichments, report))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{RecordsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(RecordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, EnhancedColumns(), rows[0])
	assert.Equal(t, "여권 발급", rows[1][0])

	conclusion, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	last := conclusion[len(conclusion)-1]
	assert.Equal(t, "결론", last[0])
	assert.Equal(t, report.Conclusion(), last[1])
}
