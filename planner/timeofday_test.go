package planner

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDayFormats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10:00", "10:00"},
		{"9:05", "09:05"},
		{"14:30:15", "14:30"},
		{"2024-05-01T18:45", "18:45"},
		{"2024-05-01T18:45:30", "18:45"},
		{"2024-05-01 08:15", "08:15"},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q) failed: %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeOfDayRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "null", "утром", "25:00", "abc"} {
		if _, err := ParseTimeOfDay(in); err == nil {
			t.Errorf("ParseTimeOfDay(%q) should fail", in)
		}
	}
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	var tod TimeOfDay
	if err := json.Unmarshal([]byte(`"09:30"`), &tod); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if tod.Hour != 9 || tod.Minute != 30 {
		t.Errorf("unmarshal got %02d:%02d", tod.Hour, tod.Minute)
	}

	data, err := json.Marshal(tod)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"09:30"` {
		t.Errorf("marshal = %s", data)
	}
}

func TestTimeOfDayUnmarshalRejectsNull(t *testing.T) {
	var tod TimeOfDay
	if err := json.Unmarshal([]byte(`null`), &tod); err == nil {
		t.Errorf("expected error for null time")
	}
}

func TestTimeOfDayBefore(t *testing.T) {
	early := TimeOfDay{Hour: 9, Minute: 0}
	late := TimeOfDay{Hour: 16, Minute: 30}
	if !early.Before(late) {
		t.Errorf("09:00 should be before 16:30")
	}
	if late.Before(early) {
		t.Errorf("16:30 should not be before 09:00")
	}
}
