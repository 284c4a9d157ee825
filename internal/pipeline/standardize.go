// internal/pipeline/standardize.go
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// Standardizer applies transform lists to record fields before serialization
type Standardizer struct {
	Global TransformList
	Fields map[types.Field]TransformList
	Skip   map[types.Field]bool
}

// NewStandardizer returns the default field standardization rules.
// Extra rules keyed by Korean column name are appended after the defaults.
func NewStandardizer(extra map[string]TransformList) (*Standardizer, error) {
	s := &Standardizer{
		Global: TransformList{{Type: "normalize"}},
		Fields: map[types.Field]TransformList{
			types.FieldProcedure: {{Type: "procedure"}},
			types.FieldFee:       {{Type: "fee"}},
			types.FieldDuration:  {{Type: "duration"}},
			types.FieldAgency:    {{Type: "strip_separators"}},
			types.FieldMisc:      {{Type: "strip_separators"}},
		},
		Skip: map[types.Field]bool{
			types.FieldLink:        true,
			types.FieldSourceURL:   true,
			types.FieldErrorStatus: true,
		},
	}

	for column, rules := range extra {
		field, ok := types.FieldByColumn(column)
		if !ok {
			return nil, fmt.Errorf("unknown field %q in transforms", column)
		}
		if err := ValidateTransformRules(rules); err != nil {
			return nil, fmt.Errorf("transforms for %s: %w", column, err)
		}
		s.Fields[field] = append(s.Fields[field], rules...)
	}
	return s, nil
}

// Apply standardizes the record in place
func (s *Standardizer) Apply(ctx context.Context, rec *types.ServiceRecord) error {
	for _, f := range types.AllFields() {
		if s.Skip[f] {
			continue
		}
		value := rec.Get(f)
		if value == "" {
			continue
		}
		out, err := s.Global.Apply(ctx, value)
		if err != nil {
			return fmt.Errorf("global transform failed for %s: %w", f, err)
		}
		if rules, ok := s.Fields[f]; ok {
			out, err = rules.Apply(ctx, out)
			if err != nil {
				return fmt.Errorf("field transform failed for %s: %w", f, err)
			}
		}
		rec.Set(f, out)
	}
	return nil
}

// Enrichment holds derived metadata for a finalized record
type Enrichment struct {
	WordCount    int                   `json:"word_count"`
	HashID       string                `json:"hash_id"`
	Completeness float64               `json:"completeness"`
	Filled       int                   `json:"filled"`
	Tier         types.ReliabilityTier `json:"tier"`
	Duration     DurationParts         `json:"duration"`
}

// Enrich computes word count, identity hash, completeness and reliability tier
func Enrich(rec *types.ServiceRecord) Enrichment {
	sum := md5.Sum([]byte(rec.IdentityKey()))
	e := Enrichment{
		WordCount: len(strings.Fields(rec.Description)),
		HashID:    hex.EncodeToString(sum[:]),
	}

	details := types.DetailFields()
	for _, f := range details {
		if rec.Filled(f) {
			e.Filled++
		}
	}
	e.Completeness = float64(e.Filled) / float64(len(details))
	e.Tier = Tier(rec.ErrorStatus, e.Filled)
	_, e.Duration = NormalizeDuration(rec.Duration)
	return e
}

// Tier derives the reliability tier from error status and filled detail count
func Tier(status types.ErrorStatus, filled int) types.ReliabilityTier {
	switch {
	case status == types.StatusNormal && filled >= 3:
		return types.TierHigh
	case status == types.StatusNormal && filled >= 1:
		return types.TierMedium
	default:
		return types.TierLow
	}
}
