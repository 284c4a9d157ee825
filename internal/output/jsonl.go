// internal/output/jsonl.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// Message is one chat turn of a fine-tuning example
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is one fine-tuning example
type Conversation struct {
	Messages []Message `json:"messages"`
}

func qa(question, answer string) Conversation {
	return Conversation{Messages: []Message{
		{Role: "user", Content: question},
		{Role: "assistant", Content: answer},
	}}
}

// summaryFields must reach summaryMinimum filled values for the summary pair
var summaryFields = []types.Field{
	types.FieldApplyMethod,
	types.FieldDocuments,
	types.FieldDuration,
	types.FieldFee,
	types.FieldAgency,
}

const summaryMinimum = 3

// Conversations builds the question/answer pairs for one record.
// Low-reliability records yield nothing.
func Conversations(rec *types.ServiceRecord, tier types.ReliabilityTier) []Conversation {
	if tier == types.TierLow {
		return nil
	}
	name := rec.Name
	var out []Conversation

	if rec.Filled(types.FieldApplyMethod) {
		out = append(out, qa(
			fmt.Sprintf("'%s' 민원은 어떻게 신청하나요?", name),
			fmt.Sprintf("%s의 신청방법은 다음과 같습니다: %s", name, rec.ApplyMethod),
		))
	}
	if rec.Filled(types.FieldDocuments) {
		out = append(out, qa(
			fmt.Sprintf("'%s' 신청에 필요한 서류가 뭐예요?", name),
			fmt.Sprintf("%s 신청에 필요한 서류는 다음과 같습니다: %s", name, rec.Documents),
		))
	}
	if rec.Filled(types.FieldProcedure) {
		out = append(out, qa(
			fmt.Sprintf("'%s' 처리 절차가 어떻게 되나요?", name),
			fmt.Sprintf("%s의 처리 절차는 다음과 같습니다: %s", name, rec.Procedure),
		))
	}

	filled := 0
	for _, f := range summaryFields {
		if rec.Filled(f) {
			filled++
		}
	}
	if filled >= summaryMinimum {
		out = append(out, qa(
			fmt.Sprintf("'%s' 민원에 관한 상세 정보를 알려주세요.", name),
			summaryAnswer(rec),
		))
	}
	return out
}

func summaryAnswer(rec *types.ServiceRecord) string {
	lines := []string{rec.Name + "에 관한 상세 정보입니다:"}
	add := func(label string, f types.Field) {
		if rec.Filled(f) {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, rec.Get(f)))
		}
	}
	add("설명", types.FieldDescription)
	add("신청방법", types.FieldApplyMethod)
	add("필요서류", types.FieldDocuments)
	add("처리기간", types.FieldDuration)
	add("수수료", types.FieldFee)
	add("담당기관", types.FieldAgency)
	add("문의처", types.FieldContact)
	return strings.Join(lines, "\n")
}

// WriteJSONL writes one conversation per line and returns the line count
func WriteJSONL(w io.Writer, records []*types.ServiceRecord, enrichments []pipeline.Enrichment) (int, error) {
	if len(records) != len(enrichments) {
		return 0, fmt.Errorf("enrichment count %d does not match record count %d", len(enrichments), len(records))
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	lines := 0
	for i, rec := range records {
		for _, conv := range Conversations(rec, enrichments[i].Tier) {
			if err := enc.Encode(conv); err != nil {
				return lines, fmt.Errorf("failed to encode conversation: %w", err)
			}
			lines++
		}
	}
	return lines, nil
}

// WriteJSONLFile writes the fine-tuning file
func WriteJSONLFile(path string, records []*types.ServiceRecord, enrichments []pipeline.Enrichment) (int, error) {
	var lines int
	err := writeFile(path, func(w io.Writer) error {
		var werr error
		lines, werr = WriteJSONL(w, records, enrichments)
		return werr
	})
	return lines, err
}
