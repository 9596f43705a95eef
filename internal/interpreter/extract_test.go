package interpreter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtractor(t *testing.T) (*Extractor, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return NewExtractor(NewPatterns(), loc), loc
}

func assertSameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, got.Equal(want), "want %s, got %s", want.Format(time.RFC3339), got.Format(time.RFC3339))
}

func TestExtractTomorrowWithClock(t *testing.T) {
	e, loc := testExtractor(t)
	// Wednesday morning.
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("Book a meeting tomorrow at 3 PM", anchor)
	require.NoError(t, err)

	assertSameInstant(t, time.Date(2024, 1, 11, 15, 0, 0, 0, loc), res.Start)
	assertSameInstant(t, time.Date(2024, 1, 11, 16, 0, 0, 0, loc), res.End)
	assert.Nil(t, res.Recurrence)
	assert.Equal(t, stageRelative, res.Stage)
}

func TestExtractEveryMonday(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("every Monday", anchor)
	require.NoError(t, err)

	// Next Monday at the default hour.
	assertSameInstant(t, time.Date(2024, 1, 15, 10, 0, 0, 0, loc), res.Start)
	require.NotNil(t, res.Recurrence)
	assert.Equal(t, time.Monday, res.Recurrence.Weekday)
	assert.True(t, len(res.Recurrence.Rule) > 6 && res.Recurrence.Rule[:6] == "RRULE:")
	assert.Contains(t, res.Recurrence.Rule, "FREQ=WEEKLY")
	assert.Contains(t, res.Recurrence.Rule, "BYDAY=MO")
	assert.Equal(t, stageRecurrence, res.Stage)
}

func TestExtractEveryMondaySaidOnMondayMorning(t *testing.T) {
	e, loc := testExtractor(t)
	// Monday before the default hour: today's occurrence still counts.
	anchor := time.Date(2024, 1, 15, 8, 0, 0, 0, loc)

	res, err := e.Extract("standup every monday", anchor)
	require.NoError(t, err)
	assertSameInstant(t, time.Date(2024, 1, 15, 10, 0, 0, 0, loc), res.Start)
}

func TestExtractThisWeekend(t *testing.T) {
	e, loc := testExtractor(t)
	// Thursday.
	anchor := time.Date(2024, 1, 11, 9, 0, 0, 0, loc)

	res, err := e.Extract("Set a call this weekend", anchor)
	require.NoError(t, err)

	// Upcoming Saturday at the default hour.
	assertSameInstant(t, time.Date(2024, 1, 13, 10, 0, 0, 0, loc), res.Start)
	assert.Equal(t, stageSpecial, res.Stage)
}

func TestExtractWeekendOnSaturdayMorning(t *testing.T) {
	e, loc := testExtractor(t)
	// Saturday morning: "this weekend" means today.
	anchor := time.Date(2024, 1, 13, 8, 0, 0, 0, loc)

	res, err := e.Extract("set a call this weekend", anchor)
	require.NoError(t, err)
	assertSameInstant(t, time.Date(2024, 1, 13, 10, 0, 0, 0, loc), res.Start)
}

func TestExtractTimeOnlyRollsForwardWhenPast(t *testing.T) {
	e, loc := testExtractor(t)
	// 4pm: "3pm" already passed today.
	anchor := time.Date(2024, 1, 10, 16, 0, 0, 0, loc)

	res, err := e.Extract("book at 3pm", anchor)
	require.NoError(t, err)

	assertSameInstant(t, time.Date(2024, 1, 11, 15, 0, 0, 0, loc), res.Start)
	assert.Equal(t, stageTimeOnly, res.Stage)
}

func TestExtractTimeOnlyStaysTodayWhenFuture(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("book at 3pm", anchor)
	require.NoError(t, err)
	assertSameInstant(t, time.Date(2024, 1, 10, 15, 0, 0, 0, loc), res.Start)
}

func TestExtractDefaultsToTomorrowMorning(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("Demo call for 30 minutes", anchor)
	require.NoError(t, err)

	assertSameInstant(t, time.Date(2024, 1, 11, 10, 0, 0, 0, loc), res.Start)
	assertSameInstant(t, time.Date(2024, 1, 11, 10, 30, 0, 0, loc), res.End)
	assert.Equal(t, stageDefault, res.Stage)
}

func TestExtractOrdinalDateWithClock(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("dinner reservation on 2nd June at 5pm", anchor)
	require.NoError(t, err)

	assertSameInstant(t, time.Date(2024, 6, 2, 17, 0, 0, 0, loc), res.Start)
}

func TestExtractMonthDayRollsToNextYear(t *testing.T) {
	e, loc := testExtractor(t)
	// September: July 4 already passed this year.
	anchor := time.Date(2024, 9, 4, 9, 0, 0, 0, loc)

	res, err := e.Extract("reserve dinner for 4 July", anchor)
	require.NoError(t, err)

	assertSameInstant(t, time.Date(2025, 7, 4, 10, 0, 0, 0, loc), res.Start)
}

func TestExtractExplicitRange(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("Book the room from 2pm to 4pm", anchor)
	require.NoError(t, err)

	assertSameInstant(t, time.Date(2024, 1, 10, 14, 0, 0, 0, loc), res.Start)
	assertSameInstant(t, time.Date(2024, 1, 10, 16, 0, 0, 0, loc), res.End)
}

func TestExtractMalformedRangeFallsBackToDefaultDuration(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	// The range runs backwards, so it is discarded.
	res, err := e.Extract("book the room from 4pm to 2pm", anchor)
	require.NoError(t, err)

	assertSameInstant(t, time.Date(2024, 1, 10, 16, 0, 0, 0, loc), res.Start)
	assertSameInstant(t, time.Date(2024, 1, 10, 17, 0, 0, 0, loc), res.End)
}

func TestExtractRejectsExplicitPriorYear(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	// The phrase patterns clip this to "2 2020"; the year must still be
	// honored and rejected, not papered over by the terminal default.
	_, err := e.Extract("book a meeting on June 2 2020", anchor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImplausibleDate)
}

func TestExtractExplicitFutureYear(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("team dinner on June 2 2026", anchor)
	require.NoError(t, err)
	assertSameInstant(t, time.Date(2026, 6, 2, 10, 0, 0, 0, loc), res.Start)
	assert.Equal(t, stageFuzzy, res.Stage)
}

func TestExtractRejectsNonsenseTokens(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	_, err := e.Extract("book a meeting on frooday", anchor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnrecognizable)
}

func TestExtractEndAlwaysAfterStart(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	inputs := []string{
		"Book a meeting tomorrow at 3 PM",
		"every Friday",
		"set a call this weekend",
		"Demo call for 30 minutes",
		"book at 8am",
		"book the room from 2pm to 4pm",
		"reserve dinner for 4 July",
	}
	for _, input := range inputs {
		res, err := e.Extract(input, anchor)
		require.NoError(t, err, input)
		assert.True(t, res.End.After(res.Start), "end must be after start for %q", input)
		assert.False(t, res.Start.Before(anchor.Add(-24*time.Hour)), "start too far in the past for %q", input)
	}
}

func TestExtractRecurrenceRuleRoundTrip(t *testing.T) {
	e, loc := testExtractor(t)
	anchor := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	res, err := e.Extract("every Monday", anchor)
	require.NoError(t, err)
	require.NotNil(t, res.Recurrence)

	// The emitted rule decodes back to weekly-on-Monday.
	assert.Equal(t, "RRULE:FREQ=WEEKLY;BYDAY=MO", res.Recurrence.Rule)
	assert.Equal(t, time.Monday, res.Recurrence.Weekday)
}
