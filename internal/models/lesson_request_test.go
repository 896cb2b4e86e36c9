package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonRequestStatusValid(t *testing.T) {
	for _, status := range []LessonRequestStatus{
		LessonStatusPending, LessonStatusAccepted, LessonStatusConfirmed,
		LessonStatusFinalized, LessonStatusCancelled,
	} {
		assert.True(t, status.Valid(), string(status))
	}
	assert.False(t, LessonRequestStatus("archived").Valid())
	assert.False(t, LessonRequestStatus("").Valid())
}

func TestLessonRequestStatusTerminal(t *testing.T) {
	assert.True(t, LessonStatusFinalized.IsTerminal())
	assert.True(t, LessonStatusCancelled.IsTerminal())
	assert.False(t, LessonStatusPending.IsTerminal())
	assert.False(t, LessonStatusAccepted.IsTerminal())
	assert.False(t, LessonStatusConfirmed.IsTerminal())
}

func TestLessonRequestStatusTransitions(t *testing.T) {
	assert.True(t, LessonStatusPending.CanTransitionTo(LessonStatusAccepted))
	assert.True(t, LessonStatusPending.CanTransitionTo(LessonStatusCancelled))
	assert.False(t, LessonStatusPending.CanTransitionTo(LessonStatusConfirmed))
	assert.False(t, LessonStatusPending.CanTransitionTo(LessonStatusFinalized))

	assert.True(t, LessonStatusAccepted.CanTransitionTo(LessonStatusPending))
	assert.True(t, LessonStatusAccepted.CanTransitionTo(LessonStatusConfirmed))
	assert.False(t, LessonStatusAccepted.CanTransitionTo(LessonStatusFinalized))

	assert.True(t, LessonStatusConfirmed.CanTransitionTo(LessonStatusFinalized))
	assert.False(t, LessonStatusConfirmed.CanTransitionTo(LessonStatusPending))
	assert.False(t, LessonStatusConfirmed.CanTransitionTo(LessonStatusAccepted))

	for _, target := range []LessonRequestStatus{
		LessonStatusPending, LessonStatusAccepted, LessonStatusConfirmed,
		LessonStatusFinalized, LessonStatusCancelled,
	} {
		assert.False(t, LessonStatusFinalized.CanTransitionTo(target), string(target))
		assert.False(t, LessonStatusCancelled.CanTransitionTo(target), string(target))
	}
}

func TestLessonReasonValid(t *testing.T) {
	for _, reason := range []LessonReason{
		ReasonReinforcement, ReasonExamOrPaper, ReasonExercises, ReasonOther,
	} {
		assert.True(t, reason.Valid(), string(reason))
	}
	assert.False(t, LessonReason("férias").Valid())
}

func TestPreferredDateLayoutRoundTrip(t *testing.T) {
	parsed, err := time.Parse(PreferredDateLayout, "10/10/2030 às 10:00")
	require.NoError(t, err)
	assert.Equal(t, "10/10/2030 às 10:00", parsed.Format(PreferredDateLayout))
}

func TestHasPreferredDate(t *testing.T) {
	request := &LessonRequest{PreferredDates: []string{"10/10/2030 às 10:00", "11/10/2030 às 14:30"}}
	assert.True(t, request.HasPreferredDate("11/10/2030 às 14:30"))
	assert.False(t, request.HasPreferredDate("11/10/2030 às 14:31"))
	assert.False(t, request.HasPreferredDate(""))
}
