package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEnrollment(t *testing.T) {
	tests := []struct {
		name   string
		grade  int
		strand string
		want   error
	}{
		{"junior high without strand", 7, "", nil},
		{"grade 10 without strand", 10, "", nil},
		{"grade 11 with strand", 11, "STEM", nil},
		{"grade 12 with strand", 12, "HUMSS", nil},
		{"grade 11 without strand", 11, "", ErrStrandRequired},
		{"grade 12 without strand", 12, "", ErrStrandRequired},
		{"junior high with strand", 9, "ABM", ErrStrandNotAllowed},
		{"unknown strand", 11, "ASTRONOMY", ErrUnknownStrand},
		{"grade below range", 6, "", ErrGradeOutOfRange},
		{"grade above range", 13, "STEM", ErrGradeOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnrollment(tt.grade, tt.strand)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsSeniorHigh(t *testing.T) {
	for grade := MinGradeLevel; grade <= MaxGradeLevel; grade++ {
		assert.Equal(t, grade >= 11, IsSeniorHigh(grade), "grade %d", grade)
	}
}
