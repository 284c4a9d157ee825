// internal/pipeline/dedupe_test.go
package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

func TestRecordDeduplicator_Deduplicate(t *testing.T) {
	first := &types.ServiceRecord{
		Name:        "주민등록표 등본 발급",
		Department:  "행정안전부",
		Link:        "https://www.gov.kr/mw/AA020InfoCappView.do?CappBizCD=13100000015",
		SequenceID:  "01",
		Description: "짧은 설명",
	}
	second := &types.ServiceRecord{
		Name:        "주민등록표 등본 발급",
		Department:  "행정안전부",
		Link:        "https://www.gov.kr/mw/AA020InfoCappView.do?CappBizCD=13100000016",
		SequenceID:  "02",
		Description: "주민등록표 등본을 인터넷으로 발급받는 서비스",
		Procedure:   "신청 → 발급",
		Fee:         "무료",
	}
	other := &types.ServiceRecord{
		Name:       "여권 발급",
		Department: "외교부",
		Link:       "https://www.gov.kr/passport",
	}

	rd := &RecordDeduplicator{}
	out, stats := rd.Deduplicate([]*types.ServiceRecord{first, other, second})

	require.Len(t, out, 2)
	assert.Same(t, first, out[0])
	assert.Same(t, other, out[1])
	assert.Equal(t, DedupeStats{Input: 3, Duplicates: 1, Output: 2}, stats)

	merged := out[0]
	assert.Equal(t, "01, 02", merged.SequenceID)
	assert.Contains(t, merged.Related, first.Link)
	assert.Contains(t, merged.Related, second.Link)
	assert.Equal(t, second.Description, merged.Description)
	assert.Equal(t, "신청 → 발급", merged.Procedure)
	assert.Equal(t, "무료", merged.Fee)
	assert.Equal(t, first.Link, merged.Link)
}

func TestRecordDeduplicator_KeepsHolderFields(t *testing.T) {
	holder := &types.ServiceRecord{Name: "a", Department: "d", Procedure: "기존 절차", Description: "긴 설명입니다", SequenceID: "1"}
	dup := &types.ServiceRecord{Name: "a", Department: "d", Procedure: "새 절차", Description: "짧음", SequenceID: "1"}
	third := &types.ServiceRecord{Name: "a", Department: "d", SequenceID: ""}

	out, _ := (&RecordDeduplicator{}).Deduplicate([]*types.ServiceRecord{holder, dup, third})

	require.Len(t, out, 1)
	assert.Equal(t, "기존 절차", out[0].Procedure)
	assert.Equal(t, "긴 설명입니다", out[0].Description)
	assert.Equal(t, "1", out[0].SequenceID)
	assert.Empty(t, out[0].Related)
}

func TestRecordDeduplicator_Strict(t *testing.T) {
	a := &types.ServiceRecord{Name: "증명서 발급", Department: "시청", Link: "https://www.gov.kr/a"}
	b := &types.ServiceRecord{Name: "증명서 발급", Department: "시청", Link: "https://www.gov.kr/b"}

	out, stats := (&RecordDeduplicator{Strict: true}).Deduplicate([]*types.ServiceRecord{a, b})
	assert.Len(t, out, 2)
	assert.Equal(t, 0, stats.Duplicates)
}

func TestSimilarNames(t *testing.T) {
	records := []*types.ServiceRecord{
		{Name: "주민등록표 등본 발급", Department: "행정안전부"},
		{Name: "주민등록표 등본 발급 신청", Department: "시청"},
		{Name: "자동차 등록", Department: "국토교통부"},
		{Name: "주민등록표 등본 발급", Department: "구청"},
	}

	pairs := SimilarNames(records, DefaultSimilarityThreshold)
	require.NotEmpty(t, pairs)
	for _, p := range pairs {
		assert.NotEqual(t, p.Name1, p.Name2)
		assert.Greater(t, p.Similarity, DefaultSimilarityThreshold)
		assert.NotEqual(t, "자동차 등록", p.Name1)
		assert.NotEqual(t, "자동차 등록", p.Name2)
	}
	assert.Len(t, pairs, 2)
}
