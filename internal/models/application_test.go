package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEndDate_ClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		stay  int
		want  time.Time
	}{
		{"jan31 non-leap", date(2025, time.January, 31), 1, date(2025, time.February, 28)},
		{"jan31 leap", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"mar15 plus three", date(2025, time.March, 15), 3, date(2025, time.June, 15)},
		{"aug31 plus six", date(2025, time.August, 31), 6, date(2026, time.February, 28)},
		{"nov30 plus twelve", date(2025, time.November, 30), 12, date(2026, time.November, 30)},
		{"oct31 plus four", date(2025, time.October, 31), 4, date(2026, time.February, 28)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeEndDate(tc.start, tc.stay))
		})
	}
}

func TestAddMonthsClamped_KeepsClockAndLocation(t *testing.T) {
	loc := time.FixedZone("MYT", 8*60*60)
	start := time.Date(2025, time.January, 31, 14, 30, 0, 0, loc)

	got := AddMonthsClamped(start, 1)

	assert.Equal(t, time.Date(2025, time.February, 28, 14, 30, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}

func TestIsPermittedStayLength(t *testing.T) {
	for _, m := range []int{1, 3, 4, 6, 8, 12} {
		assert.True(t, IsPermittedStayLength(m), "stay length %d", m)
	}
	for _, m := range []int{0, 2, 5, 7, 9, 24, -1} {
		assert.False(t, IsPermittedStayLength(m), "stay length %d", m)
	}
}

func TestApplicationStatus_Transitions(t *testing.T) {
	allowed := map[ApplicationStatus][]ApplicationStatus{
		ApplicationStatusWaitingForResponse: {ApplicationStatusAccepted, ApplicationStatusRejected, ApplicationStatusCancelled},
		ApplicationStatusAccepted:           {ApplicationStatusCompleted},
	}
	all := []ApplicationStatus{
		ApplicationStatusWaitingForResponse,
		ApplicationStatusAccepted,
		ApplicationStatusRejected,
		ApplicationStatusCompleted,
		ApplicationStatusCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, ApplicationStatusRejected.IsTerminal())
	assert.True(t, ApplicationStatusCancelled.IsTerminal())
	assert.True(t, ApplicationStatusCompleted.IsTerminal())
	assert.False(t, ApplicationStatusAccepted.IsTerminal())
	assert.False(t, ApplicationStatus("Pending").Valid())

	// Unknown statuses never transition, in either direction.
	assert.False(t, ApplicationStatusWaitingForResponse.CanTransitionTo("Pending"))
	assert.False(t, ApplicationStatus("Pending").CanTransitionTo(ApplicationStatusAccepted))
}

func TestApplication_Transition(t *testing.T) {
	a := &Application{Status: ApplicationStatusWaitingForResponse}
	require.NoError(t, a.Transition(ApplicationStatusAccepted))
	assert.Equal(t, ApplicationStatusAccepted, a.Status)

	err := a.Transition(ApplicationStatusRejected)
	require.Error(t, err)
	assert.Equal(t, ApplicationStatusAccepted, a.Status)
}

func TestScopeKey(t *testing.T) {
	pid := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	rid := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, "scope:property:"+pid.String(), ScopeKey(pid, nil))
	assert.Equal(t, "scope:room:"+pid.String()+":"+rid.String(), ScopeKey(pid, &rid))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
