package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enrollment struct {
	Grade      int    `validate:"gradelevel"`
	Strand     string `validate:"omitempty,strand"`
	SchoolYear string `validate:"omitempty,schoolyear"`
	Severity   string `validate:"omitempty,severity"`
	Username   string `validate:"omitempty,username"`
}

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	assert.NoError(t, v.Struct(enrollment{Grade: 11, Strand: "STEM", SchoolYear: "2024-2025", Severity: "High", Username: "juan.dc"}))
	assert.Error(t, v.Struct(enrollment{Grade: 6}))
	assert.Error(t, v.Struct(enrollment{Grade: 13}))
	assert.Error(t, v.Struct(enrollment{Grade: 11, Strand: "ARTS"}))
	assert.Error(t, v.Struct(enrollment{Grade: 7, SchoolYear: "2024-2026"}))
	assert.Error(t, v.Struct(enrollment{Grade: 7, Severity: "extreme"}))
	assert.Error(t, v.Struct(enrollment{Grade: 7, Username: "a b"}))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("counselor@school.edu.ph"))
	assert.False(t, IsValidEmail("not-an-email"))
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("guidance2024"))
	assert.False(t, IsStrongPassword("short1"))
	assert.False(t, IsStrongPassword("onlyletters"))
	assert.False(t, IsStrongPassword("1234567890"))
}
