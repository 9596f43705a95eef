package models

import "time"

// Intent is the closed set of actions the interpreter can route a command to.
// It is never an open string: unknown input maps to IntentFallback.
type Intent int

const (
	IntentFallback Intent = iota
	IntentBook
	IntentCheckAvailability
	IntentGreeting
)

func (i Intent) String() string {
	switch i {
	case IntentBook:
		return "book"
	case IntentCheckAvailability:
		return "check_availability"
	case IntentGreeting:
		return "greeting"
	default:
		return "fallback"
	}
}

// RecurrencePattern describes a weekly repetition on a single weekday.
// Rule carries the calendar-standard encoding (e.g. "RRULE:FREQ=WEEKLY;BYDAY=MO")
// so the calendar backend can pass it through unmodified.
type RecurrencePattern struct {
	Weekday time.Weekday
	Rule    string
}

// BookingRequest is a fully resolved request to create a calendar event.
// Start and End are always in the configured local timezone, with End
// strictly after Start. Description keeps the original command verbatim
// for audit and debugging.
type BookingRequest struct {
	Title       string
	Start       time.Time
	End         time.Time
	Recurrence  *RecurrencePattern
	Location    string
	Description string
}

// AvailabilityQuery asks for the upcoming events on the calendar.
// It carries no parameters; the backend decides the listing window.
type AvailabilityQuery struct{}

// CommandResult is the tagged union produced by interpreting one command:
// exactly one of Booking, Availability or Message is set. Intent records
// which branch the classifier chose.
type CommandResult struct {
	Intent       Intent
	Booking      *BookingRequest
	Availability *AvailabilityQuery
	Message      string
}
