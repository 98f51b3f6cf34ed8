package model

import (
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RowIssue describes one invalid signer row. Row is the 1-based position of
// the signer in the list that was validated.
type RowIssue struct {
	UID     UID    `json:"uid"`
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i RowIssue) String() string {
	return fmt.Sprintf("row %d: %s %s", i.Row, i.Field, i.Message)
}

// Normalize returns a copy of s with contact fields trimmed and NFC
// normalized. Emails are lower-cased.
func Normalize(s Signer) Signer {
	s.Name = norm.NFC.String(strings.TrimSpace(s.Name))
	s.Email = strings.ToLower(norm.NFC.String(strings.TrimSpace(s.Email)))
	if s.Role == "" {
		s.Role = RoleSigner
	}
	if s.Reminder.IntervalDays < 0 {
		s.Reminder.IntervalDays = 0
	}
	return s
}

// ValidateSigners checks that every signer has a name and a well-formed email.
// Signers are reported in the order given; callers pass them sorted by step.
func ValidateSigners(signers []Signer) []RowIssue {
	var issues []RowIssue
	for i, s := range signers {
		row := i + 1
		if strings.TrimSpace(s.Name) == "" {
			issues = append(issues, RowIssue{UID: s.UID, Row: row, Field: "name", Message: "is required"})
		}
		email := strings.TrimSpace(s.Email)
		switch {
		case email == "":
			issues = append(issues, RowIssue{UID: s.UID, Row: row, Field: "email", Message: "is required"})
		case !validEmail(email):
			issues = append(issues, RowIssue{UID: s.UID, Row: row, Field: "email", Message: "is not a valid address"})
		}
	}
	return issues
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Bob <bob@x.io>"; the field holds a bare address.
	return addr.Address == s
}
