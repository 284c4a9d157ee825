// pkg/types/types.go
package types

import (
	"strings"
)

// ErrorStatus tags the outcome of processing a single service record
type ErrorStatus string

const (
	StatusNormal                ErrorStatus = "normal"
	StatusExternalLinkHandled   ErrorStatus = "external_link_handled"
	StatusRequestError          ErrorStatus = "request_error"
	StatusHTTPStatusError       ErrorStatus = "http_status_error"
	StatusOtherError            ErrorStatus = "other_error"
	StatusLinkMissing           ErrorStatus = "link_missing"
	StatusPartialMissing        ErrorStatus = "partial_missing"
	StatusRepaired              ErrorStatus = "repaired"
	StatusMissingRequiredFields ErrorStatus = "missing_required_fields"
)

// ValidStatuses returns every error status a record may carry
func ValidStatuses() []ErrorStatus {
	return []ErrorStatus{
		StatusNormal, StatusExternalLinkHandled, StatusRequestError,
		StatusHTTPStatusError, StatusOtherError, StatusLinkMissing,
		StatusPartialMissing, StatusRepaired, StatusMissingRequiredFields,
	}
}

// IsValid checks if the status belongs to the taxonomy
func (s ErrorStatus) IsValid() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsSuccess reports whether the status counts as a successful record in run statistics
func (s ErrorStatus) IsSuccess() bool {
	switch s {
	case StatusNormal, StatusRepaired, StatusExternalLinkHandled:
		return true
	default:
		return false
	}
}

// ReliabilityTier is a coarse confidence label derived from completeness and status
type ReliabilityTier string

const (
	TierHigh   ReliabilityTier = "높음"
	TierMedium ReliabilityTier = "중간"
	TierLow    ReliabilityTier = "낮음"
)

// Tiers lists reliability tiers from highest to lowest
func Tiers() []ReliabilityTier {
	return []ReliabilityTier{TierHigh, TierMedium, TierLow}
}

// ServiceRecord is one civic service ("minwon") with a fixed field schema.
// Every field is always present; empty string means "not found".
type ServiceRecord struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Department   string `json:"department"`
	AuthRequired string `json:"auth_required"`
	Kind         string `json:"kind"`
	Link         string `json:"link"`
	LinkText     string `json:"link_text"`
	ServiceID    string `json:"service_id"`
	Category     string `json:"category"`
	SequenceID   string `json:"sequence_id"`
	BusinessCode string `json:"business_code,omitempty"`

	Procedure   string `json:"procedure"`
	ApplyMethod string `json:"apply_method"`
	Documents   string `json:"documents"`
	Fee         string `json:"fee"`
	Agency      string `json:"agency"`
	Contact     string `json:"contact"`
	Duration    string `json:"duration"`
	Eligibility string `json:"eligibility"`
	LegalBasis  string `json:"legal_basis"`
	Attachments string `json:"attachments"`
	Misc        string `json:"misc"`

	ApplyPeriod    string `json:"apply_period"`
	PaymentInfo    string `json:"payment_info"`
	ReceiptMethod  string `json:"receipt_method"`
	ProcessStatus  string `json:"process_status"`
	Subtype        string `json:"subtype"`
	Reference      string `json:"reference"`
	Related        string `json:"related"`
	Hours          string `json:"hours"`
	HandlingTime   string `json:"handling_time"`
	SupportAmount  string `json:"support_amount"`
	Forms          string `json:"forms"`
	HandlerInfo    string `json:"handler_info"`
	ServiceState   string `json:"service_state"`
	Channel        string `json:"channel"`
	Classification string `json:"classification"`
	MinwonClass    string `json:"minwon_class"`
	ProcessImages  string `json:"process_images"`
	APIInfo        string `json:"api_info"`

	ErrorStatus  ErrorStatus `json:"error_status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	SourceURL    string      `json:"source_url"`
}

// NewDetailRecord creates a record for direct detail-page entry
func NewDetailRecord(link string) *ServiceRecord {
	return &ServiceRecord{
		Link:        link,
		SourceURL:   link,
		ErrorStatus: StatusNormal,
	}
}

// Clone returns a shallow copy of the record
func (r *ServiceRecord) Clone() *ServiceRecord {
	c := *r
	return &c
}

// IdentityKey returns the (name, department) key used for duplicate detection
func (r *ServiceRecord) IdentityKey() string {
	return r.Name + "_" + r.Department
}

// Get returns the value of a canonical field
func (r *ServiceRecord) Get(f Field) string {
	if p := r.ptr(f); p != nil {
		return *p
	}
	if f == FieldErrorStatus {
		return string(r.ErrorStatus)
	}
	return ""
}

// Set overwrites the value of a canonical field
func (r *ServiceRecord) Set(f Field, value string) {
	if p := r.ptr(f); p != nil {
		*p = value
		return
	}
	if f == FieldErrorStatus {
		r.ErrorStatus = ErrorStatus(value)
	}
}

// Append adds value to a field, joined by sep. Empty values are ignored.
func (r *ServiceRecord) Append(f Field, value, sep string) {
	if value == "" {
		return
	}
	r.Set(f, r.Get(f)+value+sep)
}

// TrimSeparators strips trailing separators from concatenated fields
func (r *ServiceRecord) TrimSeparators() {
	for _, f := range ConcatenatedFields() {
		v := strings.TrimSpace(r.Get(f))
		for {
			trimmed := strings.TrimSpace(strings.TrimSuffix(v, " /"))
			if trimmed == v {
				break
			}
			v = trimmed
		}
		r.Set(f, v)
	}
}

// Filled reports whether a field carries a non-blank value
func (r *ServiceRecord) Filled(f Field) bool {
	return strings.TrimSpace(r.Get(f)) != ""
}

func (r *ServiceRecord) ptr(f Field) *string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldDescription:
		return &r.Description
	case FieldDepartment:
		return &r.Department
	case FieldAuthRequired:
		return &r.AuthRequired
	case FieldKind:
		return &r.Kind
	case FieldLink:
		return &r.Link
	case FieldLinkText:
		return &r.LinkText
	case FieldServiceID:
		return &r.ServiceID
	case FieldCategory:
		return &r.Category
	case FieldSequenceID:
		return &r.SequenceID
	case FieldProcedure:
		return &r.Procedure
	case FieldApplyMethod:
		return &r.ApplyMethod
	case FieldDocuments:
		return &r.Documents
	case FieldFee:
		return &r.Fee
	case FieldAgency:
		return &r.Agency
	case FieldContact:
		return &r.Contact
	case FieldDuration:
		return &r.Duration
	case FieldEligibility:
		return &r.Eligibility
	case FieldLegalBasis:
		return &r.LegalBasis
	case FieldAttachments:
		return &r.Attachments
	case FieldMisc:
		return &r.Misc
	case FieldApplyPeriod:
		return &r.ApplyPeriod
	case FieldPaymentInfo:
		return &r.PaymentInfo
	case FieldReceiptMethod:
		return &r.ReceiptMethod
	case FieldProcessStatus:
		return &r.ProcessStatus
	case FieldSubtype:
		return &r.Subtype
	case FieldReference:
		return &r.Reference
	case FieldRelated:
		return &r.Related
	case FieldHours:
		return &r.Hours
	case FieldHandlingTime:
		return &r.HandlingTime
	case FieldSupportAmount:
		return &r.SupportAmount
	case FieldForms:
		return &r.Forms
	case FieldHandlerInfo:
		return &r.HandlerInfo
	case FieldServiceState:
		return &r.ServiceState
	case FieldChannel:
		return &r.Channel
	case FieldClassification:
		return &r.Classification
	case FieldMinwonClass:
		return &r.MinwonClass
	case FieldProcessImages:
		return &r.ProcessImages
	case FieldAPIInfo:
		return &r.APIInfo
	case FieldErrorMessage:
		return &r.ErrorMessage
	case FieldSourceURL:
		return &r.SourceURL
	}
	return nil
}
