// Package schoolyear handles "YYYY-YYYY" school year labels and grade promotion.
package schoolyear

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// GraduatedSuffix marks the school year of a graduated student
const GraduatedSuffix = " - GRADUATED"

// ReviewThreshold is the violation count at which promotion needs review
const ReviewThreshold = 10

// Action is a promotion decision for one student
type Action string

const (
	ActionPromote  Action = "promote"
	ActionRetain   Action = "retain"
	ActionGraduate Action = "graduate"
	ActionReview   Action = "review"
)

// Default returns the school year containing t. Years start in June.
func Default(t time.Time) string {
	y := t.Year()
	if t.Month() >= time.June {
		return fmt.Sprintf("%d-%d", y, y+1)
	}
	return fmt.Sprintf("%d-%d", y-1, y)
}

// Parse returns the start year of a "YYYY-YYYY" label with consecutive years
func Parse(label string) (int, error) {
	m := pattern.FindStringSubmatch(label)
	if m == nil {
		return 0, fmt.Errorf("school year %q must look like 2024-2025", label)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		return 0, fmt.Errorf("school year %q must span consecutive years", label)
	}
	return start, nil
}

// Valid reports whether label is a well-formed school year
func Valid(label string) bool {
	_, err := Parse(label)
	return err == nil
}

// Next returns the school year after label
func Next(label string) (string, error) {
	start, err := Parse(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", start+1, start+2), nil
}

// NextGrade promotes a grade level; 12 stays 12
func NextGrade(grade int) int {
	if grade < 12 {
		return grade + 1
	}
	return grade
}

// NextGradeLabel is the preview label of the next grade
func NextGradeLabel(grade int) string {
	if grade >= 12 {
		return "Graduate"
	}
	return strconv.Itoa(grade + 1)
}

// GraduatedLabel is the school year stored for a graduate
func GraduatedLabel(year string) string {
	return year + GraduatedSuffix
}

// Suggest recommends an action from a student's violation count in a year
func Suggest(grade, violations int) Action {
	switch {
	case violations >= ReviewThreshold:
		return ActionReview
	case grade >= 12:
		return ActionGraduate
	default:
		return ActionPromote
	}
}
