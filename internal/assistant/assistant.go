package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scheduleai/internal/interpreter"
	"scheduleai/internal/models"
)

const availabilityHorizonDays = 7

// Calendar is the backend the assistant books against. Both the Google
// Calendar client and the CalDAV client satisfy it.
type Calendar interface {
	CreateEvent(ctx context.Context, event *models.Event) (link string, err error)
	ListUpcoming(ctx context.Context, days int) ([]*models.Event, error)
}

// Assistant orchestrates one conversation turn: interpret the message, route
// the result to the calendar backend, and format the reply. A backend
// failure never invalidates the interpretation; the reply degrades to
// confirming what was understood.
type Assistant struct {
	logger      *slog.Logger
	interpreter *interpreter.Interpreter
	calendar    Calendar
	loc         *time.Location
	dryRun      bool
}

// New creates an Assistant bound to one backend and one display timezone.
func New(logger *slog.Logger, interp *interpreter.Interpreter, cal Calendar, loc *time.Location, dryRun bool) *Assistant {
	return &Assistant{
		logger:      logger,
		interpreter: interp,
		calendar:    cal,
		loc:         loc,
		dryRun:      dryRun,
	}
}

// HandleMessage processes a single user message anchored at now and returns
// the assistant's reply.
func (a *Assistant) HandleMessage(ctx context.Context, text string, now time.Time) string {
	result := a.interpreter.Interpret(text, now)
	switch {
	case result.Booking != nil:
		return a.Book(ctx, result.Booking)
	case result.Availability != nil:
		return a.Availability(ctx)
	default:
		return result.Message
	}
}

// Book executes a booking request against the backend and formats the
// confirmation.
func (a *Assistant) Book(ctx context.Context, booking *models.BookingRequest) string {
	when := booking.Start.In(a.loc).Format("Monday, 02 January 2006 at 03:04 PM")

	if a.dryRun {
		a.logger.Info("[DRY RUN] Would book event", "title", booking.Title, "start", booking.Start)
		return fmt.Sprintf("[DRY RUN] Would book %q for %s.", booking.Title, when)
	}

	event := &models.Event{
		Title:       booking.Title,
		Description: booking.Description,
		StartTime:   booking.Start,
		EndTime:     booking.End,
		Location:    booking.Location,
	}
	if booking.Recurrence != nil {
		event.Recurrence = booking.Recurrence.Rule
	}

	link, err := a.calendar.CreateEvent(ctx, event)
	if err != nil {
		a.logger.Error("Failed to book event", "title", booking.Title, "error", err)
		return fmt.Sprintf("I understood %q for %s, but the booking could not be saved. Please try again later.",
			booking.Title, when)
	}

	reply := fmt.Sprintf("Meeting booked for %s.", when)
	if booking.Recurrence != nil {
		reply = fmt.Sprintf("Weekly meeting booked, starting %s.", when)
	}
	if link != "" {
		reply += "\nView it in your calendar: " + link
	}
	return reply
}

// Availability lists the upcoming events on the calendar.
func (a *Assistant) Availability(ctx context.Context) string {
	events, err := a.calendar.ListUpcoming(ctx, availabilityHorizonDays)
	if err != nil {
		a.logger.Error("Failed to fetch events", "error", err)
		return "Failed to fetch your calendar. Please try again later."
	}
	if len(events) == 0 {
		return "You're totally free for the next few days!"
	}

	var b strings.Builder
	b.WriteString("Here are your upcoming events:\n")
	for _, e := range events {
		title := e.Title
		if title == "" {
			title = "No Title"
		}
		b.WriteString(fmt.Sprintf("- %s at %s\n", title, e.StartTime.In(a.loc).Format("Mon, 02 Jan 2006 15:04")))
	}
	return strings.TrimRight(b.String(), "\n")
}
