package workflow

import (
	"errors"
	"testing"

	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	s, err := Normalize("summons_sent")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSummoned, s)

	s, err = Normalize("  Under_Review ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, s)

	_, err = Normalize("closed")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStatus))
}

func TestTransitionTable_Exhaustive(t *testing.T) {
	legal := map[models.ReportStatus]map[models.ReportStatus]bool{}
	for from, tos := range transitions {
		legal[from] = map[models.ReportStatus]bool{}
		for _, to := range tos {
			legal[from][to] = true
		}
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			plan, err := PlanTransition(from, string(to))
			switch {
			case from == to:
				require.NoError(t, err, "%s -> %s", from, to)
				assert.False(t, plan.Changed)
			case legal[from][to]:
				require.NoError(t, err, "%s -> %s", from, to)
				assert.True(t, plan.Changed)
			default:
				assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition), "%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestPlanTransition_VerificationRequiredBeforeResolve(t *testing.T) {
	_, err := PlanTransition(models.StatusPending, "resolved")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	_, err = PlanTransition(models.StatusPending, "verified")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	var ce *apperrors.CustomError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "WF_001", ce.Code)
	assert.Equal(t, models.StatusPending, ce.Details["from"])
}

func TestPlanTransition_Effects(t *testing.T) {
	tests := []struct {
		from models.ReportStatus
		to   string
		want Effects
	}{
		{models.StatusPending, "summons_sent", Effects{MarkSummonsSent: true}},
		{models.StatusSummoned, "verified", Effects{Verify: true, CreateViolation: true}},
		{models.StatusUnderReview, "dismissed", Effects{Dismiss: true}},
		{models.StatusPending, "invalid", Effects{Dismiss: true}},
		{models.StatusVerified, "resolved", Effects{Resolve: true, ResolveViolation: true}},
		{models.StatusDismissed, "resolved", Effects{Resolve: true}},
		{models.StatusPending, "under_review", Effects{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			plan, err := PlanTransition(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Effects)
		})
	}
}

func TestPlanTransition_LegacyStoredStatus(t *testing.T) {
	plan, err := PlanTransition(models.StatusSummonsSentLegacy, "summoned")
	require.NoError(t, err)
	assert.False(t, plan.Changed)

	plan, err = PlanTransition(models.StatusSummonsSentLegacy, "verified")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSummoned, plan.From)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, IsTerminal(models.StatusResolved))
	assert.True(t, IsTerminal(models.StatusInvalid))
	assert.False(t, IsTerminal(models.StatusVerified))
}

func TestAllowedFromReturnsCopy(t *testing.T) {
	allowed := AllowedFrom(models.StatusVerified)
	allowed[0] = models.StatusPending
	assert.True(t, CanTransition(models.StatusVerified, models.StatusResolved))
}
