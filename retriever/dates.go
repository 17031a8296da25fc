package retriever

import (
	"strings"
	"time"
)

// eventDateLayouts are the accepted forms for event date text, tried in
// order. Anything else counts as unparseable and excludes the event from
// date-filtered retrieval.
var eventDateLayouts = []string{
	"02.01.2006",
	"02.01.2006 15:04",
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// matchesDate applies the strict date filter: exact calendar-day equality
// for absolute filters, weekend membership for "выходные", relative-day
// resolution for today/tomorrow/day-after. An unparseable event date or an
// unrecognized filter excludes the candidate.
func (r *Retriever) matchesDate(eventDate, filterDate string) bool {
	eventDay, ok := parseEventDate(eventDate)
	if !ok {
		return false
	}

	filter := strings.ToLower(strings.TrimSpace(filterDate))
	now := r.now()

	switch {
	case strings.Contains(filter, "выходн"):
		wd := eventDay.Weekday()
		return wd == time.Saturday || wd == time.Sunday
	case filter == "сегодня":
		return sameDay(eventDay, now)
	case filter == "завтра":
		return sameDay(eventDay, now.AddDate(0, 0, 1))
	case filter == "послезавтра":
		return sameDay(eventDay, now.AddDate(0, 0, 2))
	}

	target, err := time.Parse("02.01.2006", filter)
	if err != nil {
		return false
	}
	return sameDay(eventDay, target)
}

func parseEventDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
