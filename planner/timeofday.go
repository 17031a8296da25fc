package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeOfDayLayouts are the accepted wire forms for TimeOfDay, tried in order.
// Datetime forms are reduced to their clock component.
var timeOfDayLayouts = []string{
	"15:04",
	"15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// TimeOfDay is a clock time without a date. Models emit it in several forms
// ("18:00", "18:00:00", full datetimes); all normalize to the same value.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay normalizes raw into a TimeOfDay. Empty or "null" input is
// an error naming the expected format.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return TimeOfDay{}, fmt.Errorf("time value %q is empty, expected format HH:MM", raw)
	}
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("cannot parse time %q, expected format HH:MM", raw)
}

// String renders the canonical HH:MM form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight, used for chronological sorting.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

// MarshalJSON encodes the canonical HH:MM form.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts any of the supported wire forms. JSON null is
// rejected with the expected-format error.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return fmt.Errorf("time value is null, expected format HH:MM")
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time value must be a string in HH:MM format: %w", err)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
