// internal/output/report.go
package output

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// FinetuneMinimum is the recommended number of medium-or-better records
const FinetuneMinimum = 1000

// reportFields are the columns listed in the completeness table
var reportFields = []types.Field{
	types.FieldName,
	types.FieldDescription,
	types.FieldProcedure,
	types.FieldApplyMethod,
	types.FieldDocuments,
	types.FieldFee,
	types.FieldDuration,
}

// Share is a labelled count with its share of the total
type Share struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// QualityReport summarizes field completeness and reliability of a record set
type QualityReport struct {
	GeneratedAt  time.Time `json:"generated_at"`
	Total        int       `json:"total"`
	Completeness []Share   `json:"completeness"`
	Tiers        []Share   `json:"tiers"`
	Statuses     []Share   `json:"statuses"`
	Trainable    Share     `json:"trainable"`
}

// Sufficient reports whether enough trainable records were collected
func (r *QualityReport) Sufficient() bool {
	return r.Trainable.Count >= FinetuneMinimum
}

// Conclusion is the closing recommendation of the report
func (r *QualityReport) Conclusion() string {
	if r.Sufficient() {
		return "충분한 양질의 데이터가 확보되었습니다. 파인튜닝을 진행하세요."
	}
	return "데이터 품질은 적합하나 양이 부족합니다. 더 많은 데이터를 수집하세요."
}

func share(label string, count, total int) Share {
	s := Share{Label: label, Count: count}
	if total > 0 {
		s.Percent = float64(count) / float64(total) * 100
	}
	return s
}

// BuildQualityReport computes the report. enrichments must parallel records.
func BuildQualityReport(records []*types.ServiceRecord, enrichments []pipeline.Enrichment, now time.Time) *QualityReport {
	total := len(records)
	r := &QualityReport{GeneratedAt: now, Total: total}

	for _, f := range reportFields {
		count := 0
		for _, rec := range records {
			if rec.Filled(f) {
				count++
			}
		}
		r.Completeness = append(r.Completeness, share(f.Column(), count, total))
	}

	tierCounts := make(map[types.ReliabilityTier]int)
	for _, e := range enrichments {
		tierCounts[e.Tier]++
	}
	for _, tier := range types.Tiers() {
		r.Tiers = append(r.Tiers, share(string(tier), tierCounts[tier], total))
	}
	r.Trainable = share("중간 이상", tierCounts[types.TierHigh]+tierCounts[types.TierMedium], total)

	statusCounts := make(map[types.ErrorStatus]int)
	for _, rec := range records {
		statusCounts[rec.ErrorStatus]++
	}
	for status, count := range statusCounts {
		r.Statuses = append(r.Statuses, share(string(status), count, total))
	}
	sort.Slice(r.Statuses, func(i, j int) bool {
		if r.Statuses[i].Count != r.Statuses[j].Count {
			return r.Statuses[i].Count > r.Statuses[j].Count
		}
		return r.Statuses[i].Label < r.Statuses[j].Label
	})
	return r
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>정부24 민원 데이터 품질 보고서</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
h1, h2 { color: #333; }
.section { margin-bottom: 30px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
tr:nth-child(even) { background-color: #f9f9f9; }
.progress-container { width: 100%; background-color: #f1f1f1; }
.progress-bar { height: 20px; background-color: #4CAF50; }
</style>
</head>
<body>
<h1>정부24 민원 데이터 품질 보고서</h1>
<p>생성일시: {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>

<div class="section">
<h2>1. 개요</h2>
<p>총 수집 민원 수: {{.Total}}개</p>
</div>

<div class="section">
<h2>2. 필드별 완성도</h2>
<table>
<tr><th>필드명</th><th>완성된 데이터 수</th><th>완성도 (%)</th><th>시각화</th></tr>
{{- range .Completeness}}
<tr>
<td>{{.Label}}</td>
<td>{{.Count}} / {{$.Total}}</td>
<td>{{pct .Percent}}%</td>
<td><div class="progress-container"><div class="progress-bar" style="width:{{pct .Percent}}%"></div></div></td>
</tr>
{{- end}}
</table>
</div>

<div class="section">
<h2>3. 신뢰도 분포</h2>
<table>
<tr><th>신뢰도</th><th>데이터 수</th><th>비율 (%)</th></tr>
{{- range .Tiers}}
<tr><td>{{.Label}}</td><td>{{.Count}}</td><td>{{pct .Percent}}%</td></tr>
{{- end}}
</table>
</div>

<div class="section">
<h2>4. 오류 유형 분포</h2>
<table>
<tr><th>오류 유형</th><th>데이터 수</th><th>비율 (%)</th></tr>
{{- range .Statuses}}
<tr><td>{{.Label}}</td><td>{{.Count}}</td><td>{{pct .Percent}}%</td></tr>
{{- end}}
</table>
</div>

<div class="section">
<h2>5. 인공지능 학습 적합성</h2>
<p>신뢰도 '중간' 이상의 데이터 수: {{.Trainable.Count}}개 ({{pct .Trainable.Percent}}%)</p>
<p>파인튜닝에 권장되는 최소 데이터 수는 1,000개입니다.</p>
<p>결론: {{.Conclusion}}</p>
</div>
</body>
</html>
`))

// WriteReport renders the HTML quality report
func WriteReport(w io.Writer, report *QualityReport) error {
	if err := reportTemplate.Execute(w, report); err != nil {
		return fmt.Errorf("failed to render quality report: %w", err)
	}
	return nil
}

// WriteReportFile renders the HTML quality report to path
func WriteReportFile(path string, report *QualityReport) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteReport(w, report)
	})
}
