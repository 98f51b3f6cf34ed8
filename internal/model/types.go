// Package model defines the entities shared by the editor core: signers,
// field placements and agreement metadata.
//
// Identity has two layers. Every entity carries a UID generated on the
// client at creation time; it never changes and is never reused. The
// ServerID is assigned by the persistence service once a sync call has been
// acknowledged and stays zero until then.
//
// Positions are never stored on their own. A Signer's Step is filled in from
// the ordering vector whenever a snapshot is taken and is ignored on input.
package model

import (
	"fmt"
	"strings"
	"time"
)

// UID is a client-generated identifier, assigned before any network round trip.
type UID string

// ServerID is the authoritative identifier assigned by the persistence service.
// The zero value means "not yet acknowledged".
type ServerID int64

// Acknowledged reports whether the server has assigned this id.
func (id ServerID) Acknowledged() bool {
	return id > 0
}

// Role is the part a signer plays in the workflow.
type Role string

const (
	RoleSigner   Role = "signer"
	RoleApprover Role = "approver"
	RoleViewer   Role = "viewer"
)

// ParseRole converts a string to a Role. An empty string yields RoleSigner.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleSigner:
		return RoleSigner, nil
	case RoleApprover:
		return RoleApprover, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// FieldType is the kind of input a field placement collects.
type FieldType string

const (
	FieldName      FieldType = "name"
	FieldDate      FieldType = "date"
	FieldSignature FieldType = "signature"
	FieldText      FieldType = "text"
)

// FieldTypes lists every field type in a stable order.
var FieldTypes = []FieldType{FieldName, FieldDate, FieldSignature, FieldText}

// ParseFieldType converts a string to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	ft := FieldType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FieldTypes {
		if ft == known {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// Reminder is the reminder policy for a signer. IntervalDays of zero disables reminders.
type Reminder struct {
	IntervalDays int `json:"interval_days"`
}

// Signer is a workflow participant.
type Signer struct {
	UID      UID      `json:"uid"`
	ServerID ServerID `json:"server_id,omitempty"`
	Step     int      `json:"step"`
	Role     Role     `json:"role"`
	ColorTag string   `json:"color_tag"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Reminder Reminder `json:"reminder"`
}

// FieldPlacement is an input requirement anchored to a document page.
// X and Y are the top-left corner of the field box in surface pixels.
type FieldPlacement struct {
	UID       UID       `json:"uid"`
	ServerID  ServerID  `json:"server_id,omitempty"`
	SignerRef UID       `json:"signer_ref"`
	Type      FieldType `json:"field_type"`
	Page      int       `json:"page"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	ColorTag  string    `json:"color_tag"`
}

// DateSequence holds the agreement deadlines and whether signing is sequential.
type DateSequence struct {
	EndDate    *time.Time `json:"end_date"`
	SignBefore *time.Time `json:"sign_before"`
	Sequence   bool       `json:"sequence"`
}

// Metadata is the scalar part of an agreement.
type Metadata struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Dates DateSequence `json:"dates"`
}

// Palette is the set of color tags handed out to signers in insertion order.
var Palette = []string{"#4f46e5", "#db2777", "#059669", "#d97706", "#0891b2", "#7c3aed", "#dc2626", "#65a30d"}

// ColorFor returns the palette color for the n-th signer (0-based).
func ColorFor(n int) string {
	if n < 0 {
		n = -n
	}
	return Palette[n%len(Palette)]
}
