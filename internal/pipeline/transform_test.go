// internal/pipeline/transform_test.go
package pipeline

import (
	"context"
	"testing"
)

func TestTransformRule_Apply(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		rule        TransformRule
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "trim spaces",
			rule:     TransformRule{Type: "trim"},
			input:    "  민원 안내  ",
			expected: "민원 안내",
		},
		{
			name:     "normalize",
			rule:     TransformRule{Type: "normalize"},
			input:    "여권&nbsp;발급\n\n신청",
			expected: "여권 발급 신청",
		},
		{
			name:     "normalize spaces",
			rule:     TransformRule{Type: "normalize_spaces"},
			input:    "hello    world\n\ttest",
			expected: "hello world test",
		},
		{
			name:     "remove html",
			rule:     TransformRule{Type: "remove_html"},
			input:    "민원<b>신청</b>",
			expected: "민원 신청 ",
		},
		{
			name:     "procedure",
			rule:     TransformRule{Type: "procedure"},
			input:    "신청▶발급",
			expected: "신청 → 발급",
		},
		{
			name:     "fee",
			rule:     TransformRule{Type: "fee"},
			input:    "면제",
			expected: "무료",
		},
		{
			name:     "duration",
			rule:     TransformRule{Type: "duration"},
			input:    "즉시",
			expected: "즉시처리",
		},
		{
			name:     "strip separators",
			rule:     TransformRule{Type: "strip_separators"},
			input:    "행정안전부 / 주민센터 / ",
			expected: "행정안전부 / 주민센터",
		},
		{
			name:     "regex",
			rule:     TransformRule{Type: "regex", Pattern: `\(.*?\)`, Replacement: ""},
			input:    "등본(인터넷)",
			expected: "등본",
		},
		{
			name:        "regex without pattern",
			rule:        TransformRule{Type: "regex"},
			input:       "x",
			expectError: true,
		},
		{
			name:     "prefix",
			rule:     TransformRule{Type: "prefix", Params: map[string]interface{}{"value": "민원: "}},
			input:    "등본",
			expected: "민원: 등본",
		},
		{
			name:     "replace",
			rule:     TransformRule{Type: "replace", Params: map[string]interface{}{"old": "·", "new": ", "}},
			input:    "신분증·도장",
			expected: "신분증, 도장",
		},
		{
			name:        "unknown",
			rule:        TransformRule{Type: "nope"},
			input:       "x",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.rule.Apply(ctx, tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestTransformList_Apply(t *testing.T) {
	list := TransformList{
		{Type: "normalize"},
		{Type: "procedure"},
	}

	result, err := list.Apply(context.Background(), "  신청  ▶  접수\n처리  ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != "신청 → 접수 처리" {
		t.Errorf("Expected %q, got %q", "신청 → 접수 처리", result)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := list.Apply(ctx, "x"); err == nil {
		t.Error("Expected error on cancelled context")
	}
}

func TestValidateTransformRules(t *testing.T) {
	valid := TransformList{
		{Type: "normalize"},
		{Type: "regex", Pattern: `\d+`},
		{Type: "prefix", Params: map[string]interface{}{"value": "x"}},
	}
	if err := ValidateTransformRules(valid); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	invalid := []TransformList{
		{{Type: "regex"}},
		{{Type: "regex", Pattern: "("}},
		{{Type: "suffix"}},
		{{Type: "replace", Params: map[string]interface{}{"old": "a"}}},
		{{Type: "unknown"}},
	}
	for i, rules := range invalid {
		if err := ValidateTransformRules(rules); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
