package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scheduleai/internal/interpreter"
	"scheduleai/internal/models"
)

// fakeCalendar records created events and serves canned listings.
type fakeCalendar struct {
	created   []*models.Event
	link      string
	createErr error

	upcoming []*models.Event
	listErr  error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, event *models.Event) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, event)
	return f.link, nil
}

func (f *fakeCalendar) ListUpcoming(_ context.Context, _ int) ([]*models.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.upcoming, nil
}

func testAssistant(t *testing.T, cal *fakeCalendar, dryRun bool) (*Assistant, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, interpreter.New(logger, loc), cal, loc, dryRun), loc
}

func TestHandleMessageBooksEvent(t *testing.T) {
	cal := &fakeCalendar{link: "https://calendar.example/evt/123"}
	a, loc := testAssistant(t, cal, false)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "Book a meeting tomorrow at 3 PM", now)

	require.Len(t, cal.created, 1)
	created := cal.created[0]
	assert.Equal(t, "Book A Meeting", created.Title)
	assert.True(t, created.StartTime.Equal(time.Date(2024, 1, 11, 15, 0, 0, 0, loc)))
	assert.True(t, created.EndTime.Equal(time.Date(2024, 1, 11, 16, 0, 0, 0, loc)))
	assert.Contains(t, reply, "Meeting booked for Thursday, 11 January 2024 at 03:00 PM")
	assert.Contains(t, reply, "https://calendar.example/evt/123")
}

func TestHandleMessageRecurringBooking(t *testing.T) {
	cal := &fakeCalendar{}
	a, loc := testAssistant(t, cal, false)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "standup every monday", now)

	require.Len(t, cal.created, 1)
	assert.Equal(t, "Weekly Standup", cal.created[0].Title)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;BYDAY=MO", cal.created[0].Recurrence)
	assert.Contains(t, reply, "Weekly meeting booked, starting Monday, 15 January 2024")
}

func TestHandleMessageDegradesOnBackendFailure(t *testing.T) {
	cal := &fakeCalendar{createErr: errors.New("backend unavailable")}
	a, loc := testAssistant(t, cal, false)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "Book a meeting tomorrow at 3 PM", now)

	// The interpretation survives even though the write failed.
	assert.Contains(t, reply, `I understood "Book A Meeting"`)
	assert.Contains(t, reply, "could not be saved")
	assert.Empty(t, cal.created)
}

func TestHandleMessageDryRun(t *testing.T) {
	cal := &fakeCalendar{}
	a, loc := testAssistant(t, cal, true)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "Book a meeting tomorrow at 3 PM", now)

	assert.Contains(t, reply, "[DRY RUN]")
	assert.Empty(t, cal.created)
}

func TestHandleMessageAvailability(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	cal := &fakeCalendar{upcoming: []*models.Event{
		{Title: "Product Demo", StartTime: time.Date(2024, 1, 11, 10, 0, 0, 0, loc)},
		{StartTime: time.Date(2024, 1, 12, 15, 0, 0, 0, loc)},
	}}
	a, _ := testAssistant(t, cal, false)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "Am I free this week?", now)

	assert.Contains(t, reply, "Here are your upcoming events:")
	assert.Contains(t, reply, "- Product Demo at Thu, 11 Jan 2024 10:00")
	assert.Contains(t, reply, "- No Title at Fri, 12 Jan 2024 15:00")
}

func TestHandleMessageAvailabilityEmpty(t *testing.T) {
	cal := &fakeCalendar{}
	a, loc := testAssistant(t, cal, false)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "Am I free this week?", now)
	assert.Equal(t, "You're totally free for the next few days!", reply)
}

func TestHandleMessageAvailabilityBackendFailure(t *testing.T) {
	cal := &fakeCalendar{listErr: errors.New("dial tcp: timeout")}
	a, loc := testAssistant(t, cal, false)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "check my calendar", now)
	assert.Equal(t, "Failed to fetch your calendar. Please try again later.", reply)
}

func TestHandleMessageGreetingBypassesBackend(t *testing.T) {
	cal := &fakeCalendar{createErr: errors.New("must not be called")}
	a, loc := testAssistant(t, cal, false)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	reply := a.HandleMessage(context.Background(), "hello there", now)
	assert.Equal(t, interpreter.GreetingReply, reply)
}
