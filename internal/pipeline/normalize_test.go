// internal/pipeline/normalize_test.go
package pipeline

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"collapse runs", "  주민등록표   등본\n\t발급  ", "주민등록표 등본 발급"},
		{"entities", "A&amp;B &lt;신청&gt;", "A&B <신청>"},
		{"double escaped", "&amp;lt;b&amp;gt;", "<b>"},
		{"nbsp", "수수료&nbsp;:&nbsp;무료", "수수료 : 무료"},
		{"decomposed hangul", "\u1112\u1161\u11ab", "한"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("normalize is a fixed point", prop.ForAll(
		func(s string) bool {
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("normalize of markup-like text is a fixed point", prop.ForAll(
		func(a, b string) bool {
			s := "&amp;" + a + " &lt;\n\t" + b + "&nbsp;"
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.AlphaString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestNormalizeProcedure(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"신청▶접수▶처리", "신청 → 접수 → 처리"},
		{"신청 ⇒ 검토  ▷▷ 발급", "신청 → 검토 → 발급"},
		{"작성↓제출", "작성 → 제출"},
		{"신청 → 접수", "신청 → 접수"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeProcedure(tt.input))
		})
	}
}

func TestNormalizeFee(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"면제", Free},
		{"없음", Free},
		{"수수료 없음", Free},
		{"무료", Free},
		{"0원", Free},
		{"1,500원 발급비", "1,500원 (1,500원 발급비)"},
		{"1통당 400원", "1원 (1통당 400원)"},
		{"10원", "10원 (10원)"},
		{"해당 기관 문의", "해당 기관 문의"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeFee(tt.input))
		})
	}

	t.Run("stable on formatted amount", func(t *testing.T) {
		once := NormalizeFee("1,500원 발급비")
		assert.Equal(t, once, NormalizeFee(once))
		assert.Contains(t, once, "1,500원")
		assert.Contains(t, once, "(1,500원 발급비)")
	})
}

func TestNormalizeDuration(t *testing.T) {
	t.Run("immediate", func(t *testing.T) {
		text, parts := NormalizeDuration("즉시 발급")
		assert.Equal(t, Immediate, text)
		assert.True(t, parts.IsZero())
	})

	t.Run("same day", func(t *testing.T) {
		text, _ := NormalizeDuration("당일 처리")
		assert.Equal(t, Immediate, text)
	})

	t.Run("days", func(t *testing.T) {
		text, parts := NormalizeDuration("5일 이내")
		assert.Equal(t, "5일 이내", text)
		require.NotNil(t, parts.Days)
		assert.Equal(t, 5, *parts.Days)
		assert.Nil(t, parts.Hours)
	})

	t.Run("business days with hours", func(t *testing.T) {
		_, parts := NormalizeDuration("3 영업일 (접수 후 2시간 30분)")
		require.NotNil(t, parts.Days)
		require.NotNil(t, parts.Hours)
		require.NotNil(t, parts.Minutes)
		assert.Equal(t, 3, *parts.Days)
		assert.Equal(t, 2, *parts.Hours)
		assert.Equal(t, 30, *parts.Minutes)
	})

	t.Run("empty", func(t *testing.T) {
		text, parts := NormalizeDuration("   ")
		assert.Equal(t, "", text)
		assert.True(t, parts.IsZero())
	})
}
