package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// ParseWhen resolves a free-text time phrase: "now" (and empty),
// "yesterday" with an optional clock time, a bare clock time, or a full
// "YYYY-MM-DD HH:MM". Unrecognized phrases fall back to now - that
// permissiveness is deliberate, not a parse error.
func ParseWhen(text string, now time.Time, loc *time.Location) time.Time {
	when, _ := parseWhenStrict(text, now, loc)
	return when
}

// parseWhenStrict additionally reports whether the phrase was actually
// recognized, for callers that need to know where a time phrase ends.
func parseWhenStrict(text string, now time.Time, loc *time.Location) (time.Time, bool) {
	now = now.In(loc)
	phrase := strings.ToLower(strings.TrimSpace(text))

	switch phrase {
	case "", "now":
		return now, phrase == "now" || phrase == ""
	case "yesterday":
		return now.AddDate(0, 0, -1), true
	}

	if rest, ok := strings.CutPrefix(phrase, "yesterday "); ok {
		if h, m, ok := parseClock(strings.TrimSpace(rest)); ok {
			y := now.AddDate(0, 0, -1)
			return time.Date(y.Year(), y.Month(), y.Day(), h, m, 0, 0, loc), true
		}
		return now, false
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", phrase, loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", phrase, loc); err == nil {
		return t, true
	}

	if h, m, ok := parseClock(phrase); ok {
		return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, loc), true
	}

	return now, false
}

// parseClock handles "15:04", "3:04pm" and "3pm".
func parseClock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(strings.ReplaceAll(s, " ", ""))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "":
		// Bare "3" with no meridiem or minutes is too ambiguous.
		if m[2] == "" {
			return 0, 0, false
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// CutWhenPrefix consumes a leading time phrase from the tokens and
// returns the resolved time plus the remaining tokens. Longest match
// wins so "yesterday 3pm feeling rough" keeps the right note.
func CutWhenPrefix(tokens []string, now time.Time, loc *time.Location) (time.Time, []string) {
	limit := len(tokens)
	if limit > 2 {
		limit = 2
	}
	for n := limit; n >= 1; n-- {
		phrase := strings.Join(tokens[:n], " ")
		if when, ok := parseWhenStrict(phrase, now, loc); ok {
			return when, tokens[n:]
		}
	}
	return now.In(loc), tokens
}
