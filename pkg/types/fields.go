// pkg/types/fields.go
package types

// Field identifies a canonical ServiceRecord field
type Field int

const (
	FieldName Field = iota
	FieldDescription
	FieldDepartment
	FieldAuthRequired
	FieldKind
	FieldLink
	FieldLinkText
	FieldServiceID
	FieldCategory
	FieldSequenceID
	FieldProcedure
	FieldApplyMethod
	FieldDocuments
	FieldFee
	FieldAgency
	FieldContact
	FieldDuration
	FieldEligibility
	FieldLegalBasis
	FieldAttachments
	FieldMisc
	FieldErrorStatus
	FieldApplyPeriod
	FieldPaymentInfo
	FieldReceiptMethod
	FieldProcessStatus
	FieldSubtype
	FieldReference
	FieldRelated
	FieldHours
	FieldHandlingTime
	FieldSupportAmount
	FieldForms
	FieldHandlerInfo
	FieldServiceState
	FieldChannel
	FieldClassification
	FieldMinwonClass
	FieldProcessImages
	FieldAPIInfo
	FieldErrorMessage
	FieldSourceURL

	fieldCount
)

var fieldColumns = [fieldCount]string{
	FieldName:           "민원명",
	FieldDescription:    "설명",
	FieldDepartment:     "담당부서",
	FieldAuthRequired:   "인증필요",
	FieldKind:           "유형",
	FieldLink:           "링크",
	FieldLinkText:       "링크텍스트",
	FieldServiceID:      "서비스ID",
	FieldCategory:       "카테고리",
	FieldSequenceID:     "일련번호",
	FieldProcedure:      "처리절차",
	FieldApplyMethod:    "신청방법",
	FieldDocuments:      "필요서류",
	FieldFee:            "수수료",
	FieldAgency:         "담당기관",
	FieldContact:        "연락처",
	FieldDuration:       "처리기간",
	FieldEligibility:    "신청자격",
	FieldLegalBasis:     "관련법령",
	FieldAttachments:    "첨부파일",
	FieldMisc:           "기타정보",
	FieldErrorStatus:    "오류여부",
	FieldApplyPeriod:    "신청기간",
	FieldPaymentInfo:    "결제정보",
	FieldReceiptMethod:  "수령방법",
	FieldProcessStatus:  "처리상태",
	FieldSubtype:        "민원유형",
	FieldReference:      "참고정보",
	FieldRelated:        "연관민원",
	FieldHours:          "운영시간",
	FieldHandlingTime:   "처리시간",
	FieldSupportAmount:  "지원금액",
	FieldForms:          "관련서식",
	FieldHandlerInfo:    "담당자정보",
	FieldServiceState:   "서비스상태",
	FieldChannel:        "신청경로",
	FieldClassification: "서비스분류",
	FieldMinwonClass:    "민원분류",
	FieldProcessImages:  "프로세스이미지",
	FieldAPIInfo:        "API정보",
	FieldErrorMessage:   "오류상세",
	FieldSourceURL:      "원본URL",
}

var fieldKeys = [fieldCount]string{
	FieldName:           "name",
	FieldDescription:    "description",
	FieldDepartment:     "department",
	FieldAuthRequired:   "auth_required",
	FieldKind:           "kind",
	FieldLink:           "link",
	FieldLinkText:       "link_text",
	FieldServiceID:      "service_id",
	FieldCategory:       "category",
	FieldSequenceID:     "sequence_id",
	FieldProcedure:      "procedure",
	FieldApplyMethod:    "apply_method",
	FieldDocuments:      "documents",
	FieldFee:            "fee",
	FieldAgency:         "agency",
	FieldContact:        "contact",
	FieldDuration:       "duration",
	FieldEligibility:    "eligibility",
	FieldLegalBasis:     "legal_basis",
	FieldAttachments:    "attachments",
	FieldMisc:           "misc",
	FieldErrorStatus:    "error_status",
	FieldApplyPeriod:    "apply_period",
	FieldPaymentInfo:    "payment_info",
	FieldReceiptMethod:  "receipt_method",
	FieldProcessStatus:  "process_status",
	FieldSubtype:        "subtype",
	FieldReference:      "reference",
	FieldRelated:        "related",
	FieldHours:          "hours",
	FieldHandlingTime:   "handling_time",
	FieldSupportAmount:  "support_amount",
	FieldForms:          "forms",
	FieldHandlerInfo:    "handler_info",
	FieldServiceState:   "service_state",
	FieldChannel:        "channel",
	FieldClassification: "classification",
	FieldMinwonClass:    "minwon_class",
	FieldProcessImages:  "process_images",
	FieldAPIInfo:        "api_info",
	FieldErrorMessage:   "error_message",
	FieldSourceURL:      "source_url",
}

// Column returns the Korean column name used in output files
func (f Field) Column() string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return fieldColumns[f]
}

// Key returns the ASCII column name used by database sinks
func (f Field) Key() string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return fieldKeys[f]
}

func (f Field) String() string {
	return f.Column()
}

// AllFields returns every canonical field in output column order
func AllFields() []Field {
	fields := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		fields = append(fields, f)
	}
	return fields
}

// FieldByColumn resolves a Korean column name back to its field
func FieldByColumn(column string) (Field, bool) {
	for f, c := range fieldColumns {
		if c == column {
			return Field(f), true
		}
	}
	return 0, false
}

// RequiredFields are the fields a record must carry to pass validation
func RequiredFields() []Field {
	return []Field{FieldName, FieldDescription, FieldProcedure, FieldApplyMethod}
}

// ConcatenatedFields are assembled from repeated hits and joined by separators
func ConcatenatedFields() []Field {
	return []Field{FieldAgency, FieldMisc}
}

// DetailFields are the nine fields counted for completeness scoring
func DetailFields() []Field {
	return []Field{
		FieldProcedure, FieldApplyMethod, FieldDocuments, FieldFee, FieldAgency,
		FieldContact, FieldDuration, FieldEligibility, FieldLegalBasis,
	}
}
