package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStruct(t *testing.T) {
	type registration struct {
		Email    string `json:"email" validate:"required,email"`
		FullName string `json:"full_name" validate:"required,max=20"`
		Phone    string `json:"phone" validate:"phone"`
		CNIC     string `json:"cnic" validate:"cnic"`
		Password string `validate:"min=8"`
	}

	valid := registration{
		Email:    "lead@example.com",
		FullName: "Ayesha Khan",
		Phone:    "+92 300 1234567",
		CNIC:     "35202-1234567-1",
		Password: "password123",
	}

	tests := []struct {
		name    string
		mutate  func(r *registration)
		wantErr string
	}{
		{name: "valid struct", mutate: func(r *registration) {}},
		{name: "optional fields empty", mutate: func(r *registration) { r.Phone, r.CNIC = "", "" }},
		{name: "missing required field", mutate: func(r *registration) { r.FullName = "  " }, wantErr: "full_name is required"},
		{name: "invalid email", mutate: func(r *registration) { r.Email = "invalid-email" }, wantErr: "email must be a valid email"},
		{name: "too long", mutate: func(r *registration) { r.FullName = "abcdefghijklmnopqrstuvwxyz" }, wantErr: "full_name must be at most 20 characters"},
		{name: "bad phone", mutate: func(r *registration) { r.Phone = "12ab" }, wantErr: "phone must be a valid phone number"},
		{name: "short cnic", mutate: func(r *registration) { r.CNIC = "35202-123" }, wantErr: "cnic must contain 13 digits"},
		{name: "password too short", mutate: func(r *registration) { r.Password = "short" }, wantErr: "Password must be at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			err := ValidateStruct(&input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestValidateStructRejectsNonStruct(t *testing.T) {
	assert.Error(t, ValidateStruct("nope"))
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email    string
		expected bool
	}{
		{"test@example.com", true},
		{"user.name@example.co.uk", true},
		{"invalid-email", false},
		{"@example.com", false},
		{"user@", false},
		{"", false},
		{"user@example", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateEmail(tt.email) == nil)
		})
	}
}

func TestValidateCNIC(t *testing.T) {
	assert.NoError(t, ValidateCNIC("3520212345671"))
	assert.NoError(t, ValidateCNIC("35202-1234567-1"))
	assert.Error(t, ValidateCNIC("35202-1234567"))
	assert.Error(t, ValidateCNIC("35202x1234567-1"))
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("03001234567"))
	assert.NoError(t, ValidatePhone("+92-300-1234567"))
	assert.Error(t, ValidatePhone("12345"))
	assert.Error(t, ValidatePhone("phone"))
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "lead@example.com", SanitizeEmail("  Lead@Example.COM\x00 "))
}
