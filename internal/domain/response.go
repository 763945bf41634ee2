package domain

// Response is the structured answer returned for a customer query.
type Response struct {
	Message               string `json:"message"`
	SensitiveDataIncluded bool   `json:"sensitive_data_included"`
	CautionNote           string `json:"caution_note,omitempty"`
}
