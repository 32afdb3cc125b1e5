// Package workflow holds the report review state machine and the pure
// computations around it (note formatting, tally counting, notification text).
package workflow

import (
	"fmt"
	"strings"

	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
)

// transitions is the single table of legal status moves.
var transitions = map[models.ReportStatus][]models.ReportStatus{
	models.StatusPending: {
		models.StatusUnderReview, models.StatusUnderInvestigation, models.StatusSummoned,
		models.StatusDismissed, models.StatusInvalid, models.StatusEscalated,
	},
	models.StatusUnderReview: {
		models.StatusUnderInvestigation, models.StatusSummoned, models.StatusVerified,
		models.StatusDismissed, models.StatusInvalid, models.StatusEscalated,
	},
	models.StatusUnderInvestigation: {
		models.StatusSummoned, models.StatusVerified, models.StatusDismissed,
		models.StatusInvalid, models.StatusEscalated,
	},
	models.StatusSummoned: {
		models.StatusUnderInvestigation, models.StatusVerified, models.StatusDismissed,
		models.StatusInvalid, models.StatusEscalated,
	},
	models.StatusEscalated: {
		models.StatusUnderInvestigation, models.StatusSummoned, models.StatusVerified,
		models.StatusDismissed, models.StatusInvalid,
	},
	models.StatusVerified:  {models.StatusResolved},
	models.StatusDismissed: {models.StatusResolved},
	models.StatusResolved:  nil,
	models.StatusInvalid:   nil,
}

// Statuses returns every storable status in workflow order
func Statuses() []models.ReportStatus {
	return []models.ReportStatus{
		models.StatusPending, models.StatusUnderReview, models.StatusUnderInvestigation,
		models.StatusSummoned, models.StatusEscalated, models.StatusVerified,
		models.StatusDismissed, models.StatusResolved, models.StatusInvalid,
	}
}

// Normalize parses a status string, mapping the legacy "summons_sent" to summoned.
func Normalize(raw string) (models.ReportStatus, error) {
	s := models.ReportStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == models.StatusSummonsSentLegacy {
		return models.StatusSummoned, nil
	}
	if _, ok := transitions[s]; !ok {
		return "", apperrors.NewCustomError(apperrors.ErrInvalidStatus,
			fmt.Sprintf("invalid status %q", raw)).WithCode("WF_002")
	}
	return s, nil
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(s models.ReportStatus) bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is in the table
func CanTransition(from, to models.ReportStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns the legal targets from a status
func AllowedFrom(from models.ReportStatus) []models.ReportStatus {
	out := make([]models.ReportStatus, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// Effects are the side effects a transition requires
type Effects struct {
	MarkSummonsSent  bool
	Verify           bool
	Dismiss          bool
	Resolve          bool
	CreateViolation  bool
	ResolveViolation bool
}

// Plan is the checked outcome of a requested status change
type Plan struct {
	From    models.ReportStatus
	To      models.ReportStatus
	Changed bool
	Effects Effects
}

// PlanTransition validates a move and returns what must happen. Moving to the
// current status is a no-op plan with Changed=false. The stored status is
// normalized too, so rows still holding "summons_sent" behave as summoned.
func PlanTransition(current models.ReportStatus, requested string) (Plan, error) {
	from, err := Normalize(string(current))
	if err != nil {
		return Plan{}, err
	}
	to, err := Normalize(requested)
	if err != nil {
		return Plan{}, err
	}

	if from == to {
		return Plan{From: from, To: to}, nil
	}

	if !CanTransition(from, to) {
		return Plan{}, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move report from %s to %s", from, to)).
			WithCode("WF_001").
			WithDetails(map[string]interface{}{
				"from":    from,
				"to":      to,
				"allowed": AllowedFrom(from),
			})
	}

	plan := Plan{From: from, To: to, Changed: true}
	switch to {
	case models.StatusSummoned:
		plan.Effects.MarkSummonsSent = true
	case models.StatusVerified:
		plan.Effects.Verify = true
		plan.Effects.CreateViolation = true
	case models.StatusDismissed, models.StatusInvalid:
		plan.Effects.Dismiss = true
	case models.StatusResolved:
		plan.Effects.Resolve = true
		plan.Effects.ResolveViolation = from == models.StatusVerified
	}
	return plan, nil
}
