package interpreter

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultTitle is used when nothing usable remains after stripping the time
// phrase from the command.
const DefaultTitle = "Meeting with TimeMate"

// titleOverrides canonicalizes well-known meeting shapes. The first matching
// override wins and is checked before the cleaned remainder is considered.
var titleOverrides = []struct {
	match string
	title string
}{
	{"standup", "Weekly Standup"},
	{"stand-up", "Weekly Standup"},
	{"demo", "Product Demo"},
	{"1:1", "1:1 Sync"},
	{"one-on-one", "1:1 Sync"},
	{"one on one", "1:1 Sync"},
	{"catchup", "Team Catch-up"},
	{"catch-up", "Team Catch-up"},
	{"catch up", "Team Catch-up"},
}

var trailingConnector = regexp.MustCompile(`(?i)\s*\b(at|on|by|to|for)\b[\s,]*$`)

// DeriveTitle produces a human-readable event title from the residual text
// after the time phrase is removed. Deterministic: the same (text, phrase)
// always yields the same title.
func DeriveTitle(text string, phrase TimePhrase) string {
	lowered := strings.ToLower(text)
	for _, o := range titleOverrides {
		if strings.Contains(lowered, o.match) {
			return o.title
		}
	}

	remainder := text
	if !phrase.Empty() && phrase.End <= len(text) {
		remainder = text[:phrase.Start] + text[phrase.End:]
	}
	remainder = strings.TrimSpace(remainder)
	remainder = trailingConnector.ReplaceAllString(remainder, "")
	remainder = strings.TrimSpace(strings.Trim(remainder, ",.!?"))
	if remainder == "" {
		return DefaultTitle
	}
	return titleCase(remainder)
}

// titleCase uppercases the first letter of every word and lowers the rest,
// matching the look of titles the original product produced.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
