package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppendNote(t *testing.T) {
	at := time.Date(2024, 9, 3, 14, 5, 0, 0, time.UTC)

	first := AppendNote("", at, "Ana Reyes", "Talked to the student")
	assert.Equal(t, "[2024-09-03 14:05] Ana Reyes: Talked to the student", first)

	second := AppendNote(first, at.Add(time.Hour), "Ana Reyes", "Parents informed")
	assert.Equal(t, first+"\n\n[2024-09-03 15:05] Ana Reyes: Parents informed", second)

	assert.Equal(t, second, AppendNote(second, at, "x", "   "))
}

func TestInvalidNote(t *testing.T) {
	at := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "[2025-01-02 08:00] Report marked as INVALID\nReason: no proof", InvalidNote(at, "no proof"))
}
