package interpreter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimePhrase is the substring of a command that carries temporal meaning,
// with its character span so the title extractor can strip it out.
type TimePhrase struct {
	Text  string
	Start int
	End   int
}

func (p TimePhrase) Empty() bool { return p.Text == "" }

// Patterns is the lexical pattern library: an ordered set of expressions for
// time phrases, durations, explicit ranges, recurrence and locations, plus
// the nonsense-token list that rejects obviously fake dates up front.
// It is immutable after construction and safe to share between goroutines.
type Patterns struct {
	timePhrases []*regexp.Regexp
	recurrence  *regexp.Regexp
	duration    *regexp.Regexp
	timeRange   *regexp.Regexp
	clock       *regexp.Regexp
	ordinal     *regexp.Regexp
	location    *regexp.Regexp
	nonsense    []string
}

// NewPatterns compiles the library. Time-phrase order matters: specific
// shapes ("2nd June at 5pm") are tried before bare fragments ("5pm"), and
// the first match wins.
func NewPatterns() *Patterns {
	return &Patterns{
		timePhrases: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\d{1,2}(?:st|nd|rd|th)?\s+\w+\s+at\s+\d{1,2}(?::\d{2})?\s?(?:am|pm)?`),
			regexp.MustCompile(`(?i)\w+\s+\d{1,2}(?:st|nd|rd|th)?\s+at\s+\d{1,2}(?::\d{2})?\s?(?:am|pm)?`),
			regexp.MustCompile(`(?i)(?:tomorrow|today|next\s+\w+|this\s+\w+)(?:\s+at\s+\d{1,2}(?::\d{2})?\s?(?:am|pm)?)?`),
			regexp.MustCompile(`(?i)\d{1,2}(?:st|nd|rd|th)?\s+\w+`),
			regexp.MustCompile(`(?i)\w+\s+\d{1,2}(?:st|nd|rd|th)?`),
			regexp.MustCompile(`(?i)\d{1,2}(?::\d{2})?\s?(?:am|pm)`),
		},
		recurrence: regexp.MustCompile(`(?i)\bevery\s+([a-z]+)`),
		duration:   regexp.MustCompile(`(?i)\b(\d{1,3})\s*(minutes?|mins?|hours?|hrs?)\b`),
		timeRange:  regexp.MustCompile(`(?i)\bfrom\s+(\d{1,2}(?::\d{2})?\s?(?:am|pm)?)\s+(?:to|until|till)\s+(\d{1,2}(?::\d{2})?\s?(?:am|pm)?)`),
		clock:      regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s?(am|pm)?$`),
		ordinal:    regexp.MustCompile(`(?i)(\d+)(?:st|nd|rd|th)`),
		location:   regexp.MustCompile(`(?i)\b(?:at|on|via|in)\s+(zoom|google\s+meet|meet|skype|teams|[a-z0-9.-]+\.com\S*)`),
		nonsense:   []string{"frooday", "blarg", "xzy", "nani", "asdf"},
	}
}

// connectorWords are never the first token of a real time phrase; a match
// starting with one ("at 3" inside "at 3pm") is a fragment of a phrase a
// later, narrower pattern will capture whole.
var connectorWords = map[string]bool{
	"at": true, "on": true, "by": true, "for": true, "from": true,
	"to": true, "until": true, "till": true, "in": true,
}

// ExtractTimePhrase finds the first time-bearing substring of text.
// The returned span refers to the original string, so callers can strip the
// phrase without re-searching. A zero TimePhrase means nothing matched.
func (p *Patterns) ExtractTimePhrase(text string) TimePhrase {
	for _, re := range p.timePhrases {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			if connectorWords[strings.ToLower(strings.Fields(match)[0])] {
				continue
			}
			return TimePhrase{Text: match, Start: loc[0], End: loc[1]}
		}
	}
	return TimePhrase{}
}

// CleanOrdinals strips ordinal suffixes so "2nd June" parses as "2 June".
func (p *Patterns) CleanOrdinals(s string) string {
	return p.ordinal.ReplaceAllString(s, "$1")
}

// HasNonsense reports whether the text contains a configured nonsense token.
func (p *Patterns) HasNonsense(lowered string) bool {
	for _, token := range p.nonsense {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// RecurrenceWeekday returns the weekday named in an "every <weekday>" phrase.
func (p *Patterns) RecurrenceWeekday(lowered string) (time.Weekday, bool) {
	m := p.recurrence.FindStringSubmatch(lowered)
	if m == nil {
		return 0, false
	}
	wd, ok := weekdayNames[m[1]]
	return wd, ok
}

// Duration parses a "<N> minutes" / "<N> hours" phrase anywhere in the text.
// "half an hour" is the one worded quantity users actually type.
func (p *Patterns) Duration(lowered string) (time.Duration, bool) {
	if strings.Contains(lowered, "half an hour") || strings.Contains(lowered, "half hour") {
		return 30 * time.Minute, true
	}
	m := p.duration.FindStringSubmatch(lowered)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return 0, false
	}
	if strings.HasPrefix(m[2], "h") {
		return time.Duration(n) * time.Hour, true
	}
	return time.Duration(n) * time.Minute, true
}

// Range returns the two clock phrases of an explicit "from X to Y" range.
func (p *Patterns) Range(lowered string) (from, to string, ok bool) {
	m := p.timeRange.FindStringSubmatch(lowered)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// Location extracts a meeting location ("at Zoom", "on Meet", "at acme.com").
// Known platforms are canonicalized; anything else is returned as matched.
// Returns the empty string when no location phrase is present.
func (p *Patterns) Location(text string) string {
	m := p.location.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	switch strings.Join(strings.Fields(strings.ToLower(m[1])), " ") {
	case "zoom":
		return "Zoom"
	case "meet", "google meet":
		return "Google Meet"
	case "skype":
		return "Skype"
	case "teams":
		return "Microsoft Teams"
	}
	return m[1]
}

// ParseClock parses a bare clock phrase ("3pm", "10:30 am", "14:00") into an
// hour and minute. Without an am/pm marker the hour is taken as 24-hour.
func (p *Patterns) ParseClock(s string) (hour, minute int, ok bool) {
	m := p.clock.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// weekdayNames maps recognized weekday spellings to time.Weekday.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}
