package schoolyear

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, time.May, 31, 23, 0, 0, 0, time.UTC), "2023-2024"},
		{time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), "2024-2025"},
		{time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), "2024-2025"},
		{time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), "2025-2026"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Default(tt.date), tt.date.String())
	}
}

func TestParseAndNext(t *testing.T) {
	start, err := Parse("2024-2025")
	require.NoError(t, err)
	assert.Equal(t, 2024, start)

	next, err := Next("2024-2025")
	require.NoError(t, err)
	assert.Equal(t, "2025-2026", next)

	for _, bad := range []string{"2024", "2024-2026", "24-25", "2024-2025 - GRADUATED", ""} {
		assert.False(t, Valid(bad), bad)
	}
}

func TestNextGrade(t *testing.T) {
	assert.Equal(t, 8, NextGrade(7))
	assert.Equal(t, 12, NextGrade(11))
	assert.Equal(t, 12, NextGrade(12))
	assert.Equal(t, "11", NextGradeLabel(10))
	assert.Equal(t, "Graduate", NextGradeLabel(12))
}

func TestGraduatedLabel(t *testing.T) {
	assert.Equal(t, "2025-2026 - GRADUATED", GraduatedLabel("2025-2026"))
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, ActionReview, Suggest(9, 10))
	assert.Equal(t, ActionReview, Suggest(12, 15))
	assert.Equal(t, ActionGraduate, Suggest(12, 9))
	assert.Equal(t, ActionPromote, Suggest(7, 0))
}
