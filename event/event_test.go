package event

import (
	"strings"
	"testing"
)

func TestTextJoinsSearchableFields(t *testing.T) {
	e := Event{
		Title:       "Выставка Моне",
		Description: "Импрессионисты в главном зале",
		Tags:        []string{"искусство", "выставка"},
		Location:    "Пушкинский музей, Москва",
	}
	text := e.Text()
	for _, want := range []string{"Выставка Моне", "Импрессионисты", "искусство выставка", "Пушкинский музей"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() missing %q:\n%s", want, text)
		}
	}
}

func TestTextMinimalEvent(t *testing.T) {
	e := Event{Title: "Концерт"}
	if got := e.Text(); got != "Концерт" {
		t.Errorf("got %q", got)
	}
}

func TestFormatForContextEmpty(t *testing.T) {
	if got := FormatForContext(nil); got != NoEventsSentinel {
		t.Errorf("got %q, want sentinel", got)
	}
}

func TestFormatForContext(t *testing.T) {
	events := []Event{
		{Title: "Выставка", Description: "картины", Location: "Москва", Date: "12.06.2026", Tags: []string{"арт"}},
		{Title: "Концерт"},
	}
	got := FormatForContext(events)

	for _, want := range []string{
		"1. Выставка",
		"   Описание: картины",
		"   Местоположение: Москва",
		"   Дата: 12.06.2026",
		"   Теги: арт",
		"2. Концерт",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing line %q in:\n%s", want, got)
		}
	}
	// The bare second event carries no detail lines.
	if strings.Count(got, "Описание:") != 1 {
		t.Errorf("optional lines leaked into the bare event:\n%s", got)
	}
}
