// Package interpreter turns informally-phrased scheduling commands
// ("book a meeting tomorrow at 3pm") into structured booking requests or
// availability queries. It does no general NLP: intent comes from keyword
// membership, and times come from an ordered cascade of extraction
// strategies with future-bias correction.
package interpreter

import (
	"errors"
	"log/slog"
	"time"

	"scheduleai/internal/models"
)

// Canned replies for the non-booking branches. Fixed strings, never
// parameterized.
const (
	GreetingReply = "Hi! I can book meetings or check your schedule. Try 'Book a meeting tomorrow at 3 PM'."
	FallbackReply = "I'm not sure what you meant. Try: 'Book a meeting tomorrow at 3 PM' or 'Check availability this week'."
	RephraseReply = "That doesn't seem like a real date or time. Please rephrase."
	BadDateReply  = "The date you mentioned seems incorrect. Please try again."
)

// Interpreter is the command assembler: classifier, temporal extractor and
// title extractor composed behind one call. It is stateless between
// invocations; the pattern library and timezone are fixed at construction
// and safe to share across goroutines.
type Interpreter struct {
	logger     *slog.Logger
	loc        *time.Location
	patterns   *Patterns
	classifier *Classifier
	extractor  *Extractor
}

func New(logger *slog.Logger, loc *time.Location) *Interpreter {
	patterns := NewPatterns()
	return &Interpreter{
		logger:     logger,
		loc:        loc,
		patterns:   patterns,
		classifier: NewClassifier(),
		extractor:  NewExtractor(patterns, loc),
	}
}

// Location returns the fixed timezone all emitted instants are rendered in.
func (i *Interpreter) Location() *time.Location { return i.loc }

// Interpret resolves one command against the anchor now. Extraction failures
// are normal outcomes reported as canned messages, never errors: the worst
// case is a rephrase request.
func (i *Interpreter) Interpret(text string, now time.Time) models.CommandResult {
	intent := i.classifier.Classify(text)
	switch intent {
	case models.IntentBook:
		return i.assembleBooking(text, now)
	case models.IntentCheckAvailability:
		return models.CommandResult{Intent: intent, Availability: &models.AvailabilityQuery{}}
	case models.IntentGreeting:
		return models.CommandResult{Intent: intent, Message: GreetingReply}
	default:
		return models.CommandResult{Intent: intent, Message: FallbackReply}
	}
}

func (i *Interpreter) assembleBooking(text string, now time.Time) models.CommandResult {
	res, err := i.extractor.Extract(text, now)
	if err != nil {
		if errors.Is(err, ErrImplausibleDate) {
			i.logger.Warn("Rejected implausible date.", "input", text, "error", err)
			return models.CommandResult{Intent: models.IntentBook, Message: BadDateReply}
		}
		i.logger.Debug("Extraction failed.", "input", text, "error", err)
		return models.CommandResult{Intent: models.IntentBook, Message: RephraseReply}
	}

	booking := &models.BookingRequest{
		Title:       DeriveTitle(text, res.Phrase),
		Start:       res.Start,
		End:         res.End,
		Recurrence:  res.Recurrence,
		Location:    i.patterns.Location(text),
		Description: text,
	}
	i.logger.Debug("Assembled booking request.",
		"title", booking.Title,
		"start", booking.Start.Format(time.RFC3339),
		"end", booking.End.Format(time.RFC3339),
		"stage", res.Stage)
	return models.CommandResult{Intent: models.IntentBook, Booking: booking}
}
