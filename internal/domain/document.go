package domain

// DocumentType classifies bank documentation entries.
type DocumentType string

const (
	DocTypeAccountInfo    DocumentType = "account_info"
	DocTypeLoanInfo       DocumentType = "loan_info"
	DocTypeInvestmentInfo DocumentType = "investment_info"
	DocTypeSecurityInfo   DocumentType = "security_info"
)

// SecurityRequirement is the clearance a document demands from its reader.
type SecurityRequirement string

const (
	SecurityStandard SecurityRequirement = "standard"
	SecurityHigh     SecurityRequirement = "high"
)

// Document is one entry in the bank documentation corpus.
type Document struct {
	ID                  string              `json:"id"`
	Content             string              `json:"content"`
	Type                DocumentType        `json:"type"`
	SecurityRequirement SecurityRequirement `json:"security_requirement"`
}
