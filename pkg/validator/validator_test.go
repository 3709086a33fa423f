package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Role  string `json:"role" validate:"required,oneof=patient doctor"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Name  string `json:"name" validate:"max=5"`
	Note  string `validate:"min=2"`
}

func TestValidate(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		in   signup
		want string
	}{
		{"valid", signup{Role: "doctor", Note: "ok"}, ""},
		{"missing role", signup{Note: "ok"}, "role is required"},
		{"bad role", signup{Role: "nurse", Note: "ok"}, "role must be one of [patient doctor]"},
		{"bad email", signup{Role: "patient", Email: "nope", Note: "ok"}, "email must be a valid email"},
		{"long name", signup{Role: "patient", Name: "Lakshmi", Note: "ok"}, "name must not exceed 5"},
		{"untagged field", signup{Role: "patient"}, "Note must be at least 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	err := New().Validate(signup{Name: "Priya Sharma"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role is required; ")
	assert.Contains(t, err.Error(), "name must not exceed 5")
}

func TestValidateField(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateField("phone", "9876543210", "required", "numeric"))

	err := v.ValidateField("phone", "", "required")
	require.Error(t, err)
	assert.Equal(t, "phone is required", err.Error())

	err = v.ValidateField("phone", "98-76", "numeric")
	require.Error(t, err)
	assert.Equal(t, "phone failed numeric validation", err.Error())
}
