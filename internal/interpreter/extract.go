package interpreter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/teambition/rrule-go"

	"scheduleai/internal/models"
)

var (
	// ErrUnrecognizable means no sense could be made of the input; the caller
	// should ask the user to rephrase.
	ErrUnrecognizable = errors.New("could not understand the date or time")
	// ErrImplausibleDate means a stage resolved a date that fails the sanity
	// bounds (prior year, or more than a day in the past). Reported to the
	// user like ErrUnrecognizable but logged distinctly.
	ErrImplausibleDate = errors.New("resolved date is implausibly far in the past")
)

const (
	defaultEventHour = 10
	defaultDuration  = time.Hour
	pastTolerance    = 24 * time.Hour
)

// Resolution is the product of a successful extraction: a start and end
// instant in the configured timezone, an optional recurrence, the matched
// time phrase, and the name of the stage that resolved the start.
type Resolution struct {
	Start      time.Time
	End        time.Time
	Recurrence *models.RecurrencePattern
	Phrase     TimePhrase
	Stage      string
}

// extraction is the per-call working set threaded through the stage cascade.
type extraction struct {
	lowered    string
	phrase     TimePhrase
	cleaned    string // time phrase with ordinal suffixes stripped, lowered
	now        time.Time
	recurrence *models.RecurrencePattern
}

// stage is one strategy in the ordered fallback cascade. Returning ok=false
// hands the input to the next stage; the first success wins.
type stage struct {
	name    string
	resolve func(x *extraction) (time.Time, bool)
}

const (
	stageRecurrence = "recurrence"
	stageRelative   = "relative"
	stageSpecial    = "special"
	stageFuzzy      = "fuzzy"
	stageTimeOnly   = "time-only"
	stageMonthDay   = "month-day"
	stageDefault    = "default"
)

// Extractor resolves free-form time phrases into concrete instants in one
// fixed timezone. It holds no mutable state: every call is a pure function
// of (text, now), which keeps concurrent use and testing trivial.
type Extractor struct {
	patterns *Patterns
	loc      *time.Location
	resolver *when.Parser
	stages   []stage
}

func NewExtractor(patterns *Patterns, loc *time.Location) *Extractor {
	resolver := when.New(nil)
	resolver.Add(en.All...)
	resolver.Add(common.All...)

	e := &Extractor{patterns: patterns, loc: loc, resolver: resolver}
	e.stages = []stage{
		{stageRecurrence, e.resolveRecurrence},
		{stageRelative, e.resolveRelative},
		{stageSpecial, e.resolveSpecial},
		{stageFuzzy, e.resolveFuzzy},
		{stageTimeOnly, e.resolveTimeOnly},
		{stageMonthDay, e.resolveMonthDay},
		{stageDefault, e.resolveDefault},
	}
	return e
}

// Extract runs the stage cascade over text and post-processes the winner:
// timezone localization, sanity bounds, past correction, duration and
// explicit-range handling. The anchor now is the only clock it ever reads.
func (e *Extractor) Extract(text string, now time.Time) (*Resolution, error) {
	lowered := strings.ToLower(text)
	if e.patterns.HasNonsense(lowered) {
		return nil, fmt.Errorf("%w: input contains an unrecognized token", ErrUnrecognizable)
	}

	now = now.In(e.loc)
	phrase := e.patterns.ExtractTimePhrase(text)
	x := &extraction{
		lowered: lowered,
		phrase:  phrase,
		cleaned: strings.ToLower(e.patterns.CleanOrdinals(phrase.Text)),
		now:     now,
	}

	// The terminal stage always resolves, so the loop always produces a start.
	var start time.Time
	var won string
	for _, s := range e.stages {
		if t, ok := s.resolve(x); ok {
			start = t.In(e.loc)
			won = s.name
			break
		}
	}

	start, explicitEnd := e.applyExplicitRange(x, start, won)

	if start.Year() < now.Year() || now.Sub(start) > pastTolerance {
		return nil, fmt.Errorf("%w: resolved %s with anchor %s",
			ErrImplausibleDate, start.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	// Within a day in the past: treat "3pm" said at 4pm as tomorrow 3pm.
	if start.Before(now) {
		start = start.AddDate(0, 0, 1)
		if explicitEnd != nil {
			shifted := explicitEnd.AddDate(0, 0, 1)
			explicitEnd = &shifted
		}
	}

	var end time.Time
	if explicitEnd != nil {
		end = *explicitEnd
	} else {
		d, ok := e.patterns.Duration(x.lowered)
		if !ok {
			d = defaultDuration
		}
		end = start.Add(d)
	}
	if !end.After(start) {
		end = start.Add(defaultDuration)
	}

	return &Resolution{
		Start:      start,
		End:        end,
		Recurrence: x.recurrence,
		Phrase:     phrase,
		Stage:      won,
	}, nil
}

// applyExplicitRange handles "from 2pm to 4pm": the range overrides the end
// instant and supplies the start when no dated stage produced one. A range
// that fails to parse, or runs backwards, is discarded in favor of the
// default-duration computation.
func (e *Extractor) applyExplicitRange(x *extraction, start time.Time, wonStage string) (time.Time, *time.Time) {
	from, to, ok := e.patterns.Range(x.lowered)
	if !ok {
		return start, nil
	}
	fh, fm, fok := e.patterns.ParseClock(from)
	th, tm, tok := e.patterns.ParseClock(to)
	if !fok || !tok {
		return start, nil
	}
	// When no dated stage produced a start, anchor the range to today and
	// let the past correction roll it forward if needed.
	base := start
	if wonStage == stageDefault {
		base = x.now
	}
	rangeStart := time.Date(base.Year(), base.Month(), base.Day(), fh, fm, 0, 0, e.loc)
	rangeEnd := time.Date(base.Year(), base.Month(), base.Day(), th, tm, 0, 0, e.loc)
	if !rangeEnd.After(rangeStart) {
		return start, nil
	}
	if wonStage == stageTimeOnly || wonStage == stageDefault {
		start = rangeStart
	}
	return start, &rangeEnd
}

// resolveRecurrence handles "every <weekday>": the next occurrence of that
// weekday at the default hour, plus a weekly recurrence rule. Recurrence
// short-circuits all later stages for the start instant.
func (e *Extractor) resolveRecurrence(x *extraction) (time.Time, bool) {
	wd, ok := e.patterns.RecurrenceWeekday(x.lowered)
	if !ok {
		return time.Time{}, false
	}
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart: time.Date(x.now.Year(), x.now.Month(), x.now.Day(),
			defaultEventHour, 0, 0, 0, e.loc),
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, false
	}
	next := rule.After(x.now, true)
	if next.IsZero() {
		return time.Time{}, false
	}
	x.recurrence = &models.RecurrencePattern{
		Weekday: wd,
		Rule:    "RRULE:" + opt.RRuleString(),
	}
	return next, true
}

// resolveRelative feeds phrases with a relative keyword ("tomorrow",
// "next monday", "this friday at 5pm") to the permissive calendrical
// resolver, anchored at now. Past results are rejected so later stages can
// self-correct instead.
func (e *Extractor) resolveRelative(x *extraction) (time.Time, bool) {
	if x.phrase.Empty() || !containsAny(x.cleaned, "tomorrow", "today", "next", "this") {
		return time.Time{}, false
	}
	r, err := e.resolver.Parse(x.cleaned, x.now)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	if r.Time.Before(x.now) {
		return time.Time{}, false
	}
	return r.Time, true
}

// resolveSpecial covers phrases the general resolver handles unreliably:
// "weekend" is not a weekday name, and "this friday" needs a deterministic
// answer.
func (e *Extractor) resolveSpecial(x *extraction) (time.Time, bool) {
	if strings.Contains(x.lowered, "weekend") {
		if wd := x.now.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return dateAtHour(x.now, 0, defaultEventHour, e.loc), true
		}
		return nextWeekday(x.now, time.Saturday, e.loc), true
	}
	if strings.Contains(x.lowered, "this friday") {
		return nextWeekday(x.now, time.Friday, e.loc), true
	}
	return time.Time{}, false
}

// resolveFuzzy attempts a generic parse of the cleaned time phrase. A direct
// parse handles dated forms ("2026-06-02 17:00"); failing that, "<date> at
// <clock>" is split and each side parsed on its own, which covers year-less
// forms like "2 June at 5pm"; finally, fragments carrying a standalone
// four-digit year are resolved so the sanity bounds can judge them.
func (e *Extractor) resolveFuzzy(x *extraction) (time.Time, bool) {
	if x.cleaned == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseIn(x.cleaned, e.loc); err == nil {
		return rollYearlessForward(t, x.cleaned, x.now), true
	}
	if datePart, clockPart, found := strings.Cut(x.cleaned, " at "); found {
		h, m, ok := e.patterns.ParseClock(clockPart)
		if !ok {
			return time.Time{}, false
		}
		d, ok := e.resolveDateOnly(datePart, x)
		if !ok {
			return time.Time{}, false
		}
		return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, e.loc), true
	}
	return e.explicitYearDate(x.cleaned, x)
}

// resolveDateOnly parses a date fragment without a clock component.
func (e *Extractor) resolveDateOnly(s string, x *extraction) (time.Time, bool) {
	if t, err := dateparse.ParseIn(s, e.loc); err == nil {
		return rollYearlessForward(t, s, x.now), true
	}
	if t, ok := e.monthDayDate(s, x.now); ok {
		return t, true
	}
	return e.explicitYearDate(s, x)
}

// explicitYearDate resolves a fragment that carries a standalone four-digit
// year the generic parser gave up on. The phrase patterns clip "June 2 2020"
// to "2 2020", so the month is looked up in the full text when the fragment
// lost it; a missing day falls back to today's. The year stands as written:
// a prior year fails the sanity bounds instead of booking the default slot.
func (e *Extractor) explicitYearDate(fragment string, x *extraction) (time.Time, bool) {
	var year, day int
	var month time.Month
	for _, f := range strings.Fields(fragment) {
		if y, ok := parseYear(f); ok {
			year = y
			continue
		}
		if m, ok := monthNames[f]; ok && month == 0 {
			month = m
			continue
		}
		if d, ok := parseDayNumber(f); ok && day == 0 {
			day = d
		}
	}
	if year == 0 {
		return time.Time{}, false
	}
	if month == 0 {
		month = monthInText(x.lowered)
	}
	if month == 0 {
		month = x.now.Month()
	}
	if day == 0 {
		day = x.now.Day()
	}
	t := time.Date(year, month, day, defaultEventHour, 0, 0, 0, e.loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// rollYearlessForward moves a parsed date that carried no explicit year and
// already passed into the next year. Dates with a four-digit year stand as
// written and fail the sanity bounds instead.
func rollYearlessForward(t time.Time, fragment string, now time.Time) time.Time {
	if now.Sub(t) > pastTolerance && !hasExplicitYear(fragment) {
		return t.AddDate(1, 0, 0)
	}
	return t
}

func hasExplicitYear(s string) bool {
	run := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			run++
			if run == 4 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// monthDayDate resolves a year-less "4 july" / "july 4" fragment in the
// current year, rolling dates that already passed to the next year.
func (e *Extractor) monthDayDate(s string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return time.Time{}, false
	}
	day, month, ok := dayAndMonth(fields[0], fields[1])
	if !ok {
		return time.Time{}, false
	}
	t := time.Date(now.Year(), month, day, 0, 0, 0, 0, e.loc)
	if t.Month() != month || t.Day() != day {
		// time.Date normalized an impossible day like "31 Feb".
		return time.Time{}, false
	}
	if now.Sub(t) > pastTolerance {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}

// resolveTimeOnly anchors a bare clock phrase ("3pm", "10:30 am") to today.
// If that lands in the past, post-processing rolls it forward one day.
func (e *Extractor) resolveTimeOnly(x *extraction) (time.Time, bool) {
	if x.phrase.Empty() {
		return time.Time{}, false
	}
	h, m, ok := e.patterns.ParseClock(x.cleaned)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(x.now.Year(), x.now.Month(), x.now.Day(), h, m, 0, 0, e.loc), true
}

// resolveMonthDay parses a year-less "4 July" / "July 4" phrase in the
// current year at the default hour. A date that already passed rolls to the
// next year.
func (e *Extractor) resolveMonthDay(x *extraction) (time.Time, bool) {
	d, ok := e.monthDayDate(x.cleaned, x.now)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), defaultEventHour, 0, 0, 0, e.loc), true
}

// resolveDefault is the terminal stage: with nothing usable in the text,
// the booking lands tomorrow at the default hour.
func (e *Extractor) resolveDefault(x *extraction) (time.Time, bool) {
	return dateAtHour(x.now, 1, defaultEventHour, e.loc), true
}

func dateAtHour(anchor time.Time, daysAhead, hour int, loc *time.Location) time.Time {
	return time.Date(anchor.Year(), anchor.Month(), anchor.Day()+daysAhead, hour, 0, 0, 0, loc)
}

func nextWeekday(anchor time.Time, target time.Weekday, loc *time.Location) time.Time {
	ahead := (int(target) - int(anchor.Weekday()) + 7) % 7
	return dateAtHour(anchor, ahead, defaultEventHour, loc)
}

func dayAndMonth(first, second string) (day int, month time.Month, ok bool) {
	if m, found := monthNames[first]; found {
		// "July 4"
		d, ok := parseDayNumber(second)
		return d, m, ok
	}
	if m, found := monthNames[second]; found {
		// "4 July"
		d, ok := parseDayNumber(first)
		return d, m, ok
	}
	return 0, 0, false
}

func parseYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// monthInText finds the first month name anywhere in the lowered input.
func monthInText(lowered string) time.Month {
	for _, f := range strings.Fields(lowered) {
		if m, ok := monthNames[f]; ok {
			return m
		}
	}
	return 0
}

func parseDayNumber(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > 31 {
		return 0, false
	}
	return n, true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}
