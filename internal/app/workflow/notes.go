package workflow

import (
	"fmt"
	"strings"
	"time"
)

const noteTimeLayout = "2006-01-02 15:04"

// AppendNote adds a timestamped counselor note. Blank notes leave existing untouched.
func AppendNote(existing string, at time.Time, author, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	entry := fmt.Sprintf("[%s] %s: %s", at.Format(noteTimeLayout), author, note)
	if strings.TrimSpace(existing) == "" {
		return entry
	}
	return existing + "\n\n" + entry
}

// InvalidNote formats the note recorded when a report is marked invalid
func InvalidNote(at time.Time, reason string) string {
	return fmt.Sprintf("[%s] Report marked as INVALID\nReason: %s", at.Format(noteTimeLayout), reason)
}

// DefaultInvalidReason is used when mark-invalid carries no reason
const DefaultInvalidReason = "No violation found after investigation"
