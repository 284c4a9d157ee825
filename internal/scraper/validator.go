// internal/scraper/validator.go
package scraper

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/internal/analysis"
	rerrors "github.com/valpere/MinwonScrapexter/internal/errors"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

const (
	// DefaultRepairAttempts is the number of re-extractions tried by Repair
	DefaultRepairAttempts = 3

	// UnavailablePlaceholder fills required fields after repair exhaustion
	UnavailablePlaceholder = "정보를 가져올 수 없음 (자동 생성)"

	missingValue     = "정보 없음"
	requiredMinRunes = 2
)

// Extractor produces a detail record for a link
type Extractor interface {
	Extract(ctx context.Context, link string, opts ResolveOptions) *types.ServiceRecord
}

// Evicter drops cached fetch state of a URL
type Evicter interface {
	Evict(url string)
}

// Validator checks required-field completeness and repairs records by
// re-extracting their detail page.
type Validator struct {
	extractor Extractor
	cache     Evicter
	analyzer  analysis.Analyzer
	backoff   *rerrors.Service
	logger    logrus.FieldLogger
}

// NewValidator creates a validator. A nil analyzer disables synthesis.
func NewValidator(extractor Extractor, cache Evicter, analyzer analysis.Analyzer, logger logrus.FieldLogger) *Validator {
	if analyzer == nil {
		analyzer = analysis.Disabled{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Validator{
		extractor: extractor,
		cache:     cache,
		analyzer:  analyzer,
		backoff:   rerrors.NewService(rerrors.DefaultRetryConfig()),
		logger:    logger,
	}
}

// WithBackoff replaces the repair backoff service
func (v *Validator) WithBackoff(s *rerrors.Service) *Validator {
	v.backoff = s
	return v
}

// placeholders are generated fill-ins that never satisfy a required field
var placeholders = map[string]bool{
	missingValue:           true,
	PartialPlaceholder:     true,
	UnavailablePlaceholder: true,
	ErrorPlaceholder:       true,
	DefaultTitle:           true,
	DefaultDescription:     true,
}

// unusable reports whether a required value is absent or a placeholder
func unusable(value string) bool {
	value = strings.TrimSpace(value)
	return placeholders[value] || utf8.RuneCountInString(value) < requiredMinRunes
}

// Validate reports whether the required fields are usable. When text
// analysis is available it may synthesize a missing name or description
// in place before deciding.
func (v *Validator) Validate(rec *types.ServiceRecord) bool {
	var absent []types.Field
	for _, f := range types.RequiredFields() {
		if unusable(rec.Get(f)) {
			absent = append(absent, f)
		}
	}

	if len(absent) > 0 {
		v.logger.WithFields(logrus.Fields{
			"name":    rec.Name,
			"missing": columns(absent),
		}).Warn("record failed validation")

		if v.analyzer.Available() && (!unusable(rec.Description) || !unusable(rec.Name)) {
			absent = v.synthesize(rec, absent)
		}
		if len(absent) > 0 {
			return false
		}
	}

	if rec.Name == rec.Description {
		if !v.analyzer.Available() {
			return false
		}
		keywords, _ := v.analyzer.Analyze(rec.Name)
		if len(keywords) == 0 {
			return false
		}
		rec.Description = fmt.Sprintf("%s은(는) %s와 관련된 민원입니다.", rec.Name, strings.Join(top(keywords, 3), ", "))
	}
	return true
}

// synthesize fills name and description from related fields and returns
// the fields still absent.
func (v *Validator) synthesize(rec *types.ServiceRecord, absent []types.Field) []types.Field {
	source := rec.Description
	if unusable(source) {
		source = rec.Name
	}
	keywords, _ := v.analyzer.Analyze(source)

	var still []types.Field
	for _, f := range absent {
		switch {
		case f == types.FieldName && len(keywords) > 0:
			rec.Name = strings.Join(top(keywords, 3), " ") + TitleSuffix
			v.logger.WithField("name", rec.Name).Info("name synthesized from keywords")
		case f == types.FieldDescription && !unusable(rec.Name):
			rec.Description = rec.Name + "에 관한 민원 서비스입니다."
			v.logger.WithField("name", rec.Name).Info("description synthesized from name")
		default:
			still = append(still, f)
		}
	}
	return still
}

// Repair re-extracts the record's detail page until it validates or
// maxAttempts are used. Caches are evicted before every attempt and
// attempts after the first force the render strategy.
func (v *Validator) Repair(ctx context.Context, rec *types.ServiceRecord, maxAttempts int) *types.ServiceRecord {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRepairAttempts
	}
	if rec.Link == "" {
		rec.ErrorStatus = types.StatusLinkMissing
		return rec
	}
	logger := v.logger.WithFields(logrus.Fields{"url": rec.Link, "name": rec.Name})

	for attempt := 0; attempt < maxAttempts; attempt++ {
		logger.WithField("attempt", attempt+1).Info("repairing record")
		v.cache.Evict(rec.Link)

		if err := v.backoff.Wait(ctx, attempt); err != nil {
			logger.WithError(err).Warn("repair interrupted")
			break
		}

		opts := ResolveOptions{ForceRender: attempt > 0}
		detail := v.extractor.Extract(ctx, rec.Link, opts)
		if opts.ForceRender && isFetchFailure(detail.ErrorStatus) {
			logger.WithField("attempt", attempt+1).Warn("forced render failed")
			continue
		}
		MergeDetail(rec, detail)

		if v.Validate(rec) {
			rec.ErrorStatus = types.StatusRepaired
			rec.ErrorMessage = ""
			return rec
		}
	}

	rec.ErrorStatus = types.StatusMissingRequiredFields
	for _, f := range []types.Field{types.FieldProcedure, types.FieldApplyMethod, types.FieldDocuments, types.FieldAgency} {
		if val := rec.Get(f); unusable(val) {
			rec.Set(f, UnavailablePlaceholder)
		}
	}
	return rec
}

func isFetchFailure(s types.ErrorStatus) bool {
	return s == types.StatusRequestError || s == types.StatusHTTPStatusError
}

func top(words []string, n int) []string {
	if len(words) > n {
		return words[:n]
	}
	return words
}

func columns(fields []types.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Column()
	}
	return strings.Join(names, ", ")
}
