package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"", RoleSigner, false},
		{"signer", RoleSigner, false},
		{" Approver ", RoleApprover, false},
		{"VIEWER", RoleViewer, false},
		{"owner", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFieldType(t *testing.T) {
	ft, err := ParseFieldType("Signature")
	require.NoError(t, err)
	assert.Equal(t, FieldSignature, ft)

	_, err = ParseFieldType("checkbox")
	assert.Error(t, err)
}

func TestServerID_Acknowledged(t *testing.T) {
	assert.False(t, ServerID(0).Acknowledged())
	assert.True(t, ServerID(7).Acknowledged())
}

func TestNormalize(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	s := Normalize(Signer{Name: "  Rene\u0301 ", Email: " Rene@Example.COM ", Reminder: Reminder{IntervalDays: -3}})

	assert.Equal(t, "Ren\u00e9", s.Name)
	assert.Equal(t, "rene@example.com", s.Email)
	assert.Equal(t, RoleSigner, s.Role)
	assert.Equal(t, 0, s.Reminder.IntervalDays)
}

func TestValidateSigners(t *testing.T) {
	signers := []Signer{
		{UID: "a", Name: "Ann", Email: "ann@example.com"},
		{UID: "b", Name: "", Email: "bob@example.com"},
		{UID: "c", Name: "Cy", Email: ""},
		{UID: "d", Name: "Di", Email: "Di <di@example.com>"},
	}

	issues := ValidateSigners(signers)
	require.Len(t, issues, 3)

	assert.Equal(t, RowIssue{UID: "b", Row: 2, Field: "name", Message: "is required"}, issues[0])
	assert.Equal(t, RowIssue{UID: "c", Row: 3, Field: "email", Message: "is required"}, issues[1])
	assert.Equal(t, UID("d"), issues[2].UID)
	assert.Equal(t, "row 4: email is not a valid address", issues[2].String())
}

func TestValidateSigners_AllValid(t *testing.T) {
	assert.Empty(t, ValidateSigners([]Signer{{UID: "a", Name: "Ann", Email: "ann@example.com"}}))
	assert.Empty(t, ValidateSigners(nil))
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, Palette[0], ColorFor(0))
	assert.Equal(t, Palette[1], ColorFor(len(Palette)+1))
}
