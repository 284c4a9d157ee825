// internal/scraper/fieldmap.go
package scraper

import (
	"strings"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

const (
	agencySeparator = " / "
	miscSeparator   = " / "
)

// MergePolicy decides how repeated hits on a field are combined
type MergePolicy int

const (
	Overwrite MergePolicy = iota
	Append
)

// FieldMapping maps a subheading label fragment to a canonical field
type FieldMapping struct {
	Label string
	Field types.Field
}

// FieldMap is an ordered label table; the first entry whose label is a
// substring of the page label wins.
type FieldMap []FieldMapping

// DefaultFieldMap is the label table for gov.kr detail pages
var DefaultFieldMap = FieldMap{
	{"지원형태", types.FieldMisc},
	{"지원내용", types.FieldMisc},
	{"지원대상", types.FieldEligibility},
	{"절차/방법", types.FieldProcedure},
	{"온라인신청", types.FieldApplyMethod},
	{"접수기관", types.FieldAgency},
	{"근거법령", types.FieldLegalBasis},
	{"소관기관", types.FieldAgency},
	{"최종수정일", types.FieldMisc},
	{"수수료", types.FieldFee},
	{"처리기간", types.FieldDuration},
	{"필요서류", types.FieldDocuments},
	{"신청방법", types.FieldApplyMethod},
	{"문의기관", types.FieldAgency},
	{"담당부서", types.FieldAgency},
	{"관련서식", types.FieldDocuments},
	{"처리부서", types.FieldAgency},
	{"신청대상", types.FieldEligibility},
	{"신청기간", types.FieldApplyPeriod},
	{"제출서류", types.FieldDocuments},
	{"구비서류", types.FieldDocuments},
	{"첨부서류", types.FieldDocuments},
	{"지원금액", types.FieldSupportAmount},
	{"신청양식", types.FieldForms},
	{"관할기관", types.FieldAgency},
	{"결제방법", types.FieldPaymentInfo},
	{"발급비용", types.FieldFee},
	{"수령방법", types.FieldReceiptMethod},
	{"처리상태", types.FieldProcessStatus},
	{"민원유형", types.FieldSubtype},
	{"서비스유형", types.FieldSubtype},
	{"법적근거", types.FieldLegalBasis},
	{"연락처", types.FieldContact},
	{"신청조건", types.FieldEligibility},
	{"민원편람", types.FieldReference},
	{"연관민원", types.FieldRelated},
	{"담당처", types.FieldAgency},
	{"접수처", types.FieldAgency},
	{"운영시간", types.FieldHours},
	{"이용시간", types.FieldHours},
	{"발급시간", types.FieldHandlingTime},
	{"처리과정", types.FieldProcedure},
	{"신청절차", types.FieldProcedure},
	{"담당자", types.FieldHandlerInfo},
}

// Lookup returns the field for the first mapping whose label occurs in label
func (m FieldMap) Lookup(label string) (types.Field, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}
	for _, entry := range m {
		if strings.Contains(label, entry.Label) {
			return entry.Field, true
		}
	}
	return 0, false
}

// PolicyFor returns the merge policy of a field
func PolicyFor(f types.Field) MergePolicy {
	if f == types.FieldAgency {
		return Append
	}
	return Overwrite
}

// Assign routes a labeled value into the record: mapped fields follow their
// merge policy, unmapped labels go to the miscellaneous field. It reports
// whether the label was mapped.
func (m FieldMap) Assign(rec *types.ServiceRecord, label, content string) bool {
	content = strings.TrimSpace(content)
	field, ok := m.Lookup(label)
	if !ok {
		if content != "" {
			appendUnique(rec, types.FieldMisc, strings.TrimSpace(label)+": "+content, miscSeparator)
		}
		return false
	}
	if content == "" {
		return true
	}
	switch {
	case PolicyFor(field) == Append:
		appendUnique(rec, field, content, agencySeparator)
	case field == types.FieldMisc:
		appendUnique(rec, field, strings.TrimSpace(label)+": "+content, miscSeparator)
	default:
		rec.Set(field, content)
	}
	return true
}

// appendUnique appends value unless it is already one of the field's parts.
// The same block can be reached from more than one heading rule.
func appendUnique(rec *types.ServiceRecord, f types.Field, value, sep string) {
	// parts are delimited by the full separator, so values may contain "/"
	padded := sep + rec.Get(f)
	if !strings.HasSuffix(padded, sep) {
		padded += sep
	}
	if strings.Contains(padded, sep+value+sep) {
		return
	}
	rec.Append(f, value, sep)
}
