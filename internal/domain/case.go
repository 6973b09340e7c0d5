package domain

import (
	"strings"
	"time"
)

type Case struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId"`
	ClientName      string     `json:"clientName"`
	ClientContact   string     `json:"clientContact"`
	CaseType        string     `json:"caseType"`
	InvolvedParties string     `json:"involvedParties"`
	CaseDescription string     `json:"caseDescription"`
	FilingDeadline  *time.Time `json:"filingDeadline,omitempty"`
	CourtDate       *time.Time `json:"courtDate,omitempty"`
	SeniorLawyer    string     `json:"seniorLawyer"`
	JuniorLawyer    string     `json:"juniorLawyer"`
	Documents       []string   `json:"documents"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CaseRequest is the create/update payload. Dates arrive as YYYY-MM-DD
// strings from the intake form; parsed values are populated by Validate.
type CaseRequest struct {
	ClientName      string   `json:"clientName"`
	ClientContact   string   `json:"clientContact"`
	CaseType        string   `json:"caseType"`
	InvolvedParties string   `json:"involvedParties"`
	CaseDescription string   `json:"caseDescription"`
	FilingDeadline  string   `json:"filingDeadline"`
	CourtDate       string   `json:"courtDate"`
	SeniorLawyer    string   `json:"seniorLawyer"`
	JuniorLawyer    string   `json:"juniorLawyer"`
	Documents       []string `json:"documents"`

	ParsedFilingDeadline *time.Time `json:"-"`
	ParsedCourtDate      *time.Time `json:"-"`
}

const caseDateLayout = "2006-01-02"

func (r *CaseRequest) Normalize() {
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientContact = strings.TrimSpace(r.ClientContact)
	r.CaseType = strings.TrimSpace(r.CaseType)
	r.SeniorLawyer = strings.TrimSpace(r.SeniorLawyer)
	r.JuniorLawyer = strings.TrimSpace(r.JuniorLawyer)
	if r.Documents == nil {
		r.Documents = []string{}
	}
}

func (r *CaseRequest) Validate() *ValidationError {
	errs := map[string]string{}

	if len(r.ClientName) < 2 {
		errs["clientName"] = "Client name must be at least 2 characters long"
	}

	if r.FilingDeadline != "" {
		t, err := time.Parse(caseDateLayout, r.FilingDeadline)
		if err != nil {
			errs["filingDeadline"] = "Please provide the filing deadline as YYYY-MM-DD"
		} else {
			r.ParsedFilingDeadline = &t
		}
	}

	if r.CourtDate != "" {
		t, err := time.Parse(caseDateLayout, r.CourtDate)
		if err != nil {
			errs["courtDate"] = "Please provide the court date as YYYY-MM-DD"
		} else {
			r.ParsedCourtDate = &t
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
