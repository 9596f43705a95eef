package interpreter

import (
	"strings"

	"scheduleai/internal/models"
)

// Keyword sets are static data so precedence and membership stay independently
// testable and extensible without touching the classification control flow.
// Booking keywords dominate availability keywords when both are present:
// booking is the primary action.
var (
	bookingKeywords = []string{
		"book", "schedule", "set up", "meeting", "appointment",
		"reserve", "block", "invite", "call", "every",
	}
	availabilityKeywords = []string{
		"free", "available", "availability", "my schedule",
		"upcoming", "when", "busy", "calendar", "check",
	}
	greetingPrefixes = []string{
		"hi", "hello", "hey", "yo", "thanks", "thank you",
		"good morning", "good afternoon", "good evening",
	}
)

// Classifier maps raw input text to an Intent using keyword and prefix
// membership tests. It owns normalization: matching happens on a lowered
// copy and the original text is never mutated.
type Classifier struct {
	booking      []string
	availability []string
	greetings    []string
}

func NewClassifier() *Classifier {
	return &Classifier{
		booking:      bookingKeywords,
		availability: availabilityKeywords,
		greetings:    greetingPrefixes,
	}
}

// Classify is a pure function over text. Rule order is the precedence order.
func (c *Classifier) Classify(text string) models.Intent {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return models.IntentFallback
	}
	for _, kw := range c.booking {
		if strings.Contains(lowered, kw) {
			return models.IntentBook
		}
	}
	for _, kw := range c.availability {
		if strings.Contains(lowered, kw) {
			return models.IntentCheckAvailability
		}
	}
	for _, prefix := range c.greetings {
		if hasLeadingWord(lowered, prefix) {
			return models.IntentGreeting
		}
	}
	return models.IntentFallback
}

// hasLeadingWord reports whether s starts with prefix as whole words:
// "hi there" and "hi!" qualify, "hike" does not.
func hasLeadingWord(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	if len(s) == len(prefix) {
		return true
	}
	next := s[len(prefix)]
	return !(next >= 'a' && next <= 'z') && !(next >= '0' && next <= '9')
}
