// Package event defines the event record shared by storage, retrieval and
// planning.
package event

import (
	"fmt"
	"strings"
)

// Event is a semantic record of something happening. Owner is either a user
// identifier for personal events or "all" for the shared pool.
type Event struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`
	Country     string   `json:"country,omitempty"`
	Location    string   `json:"location,omitempty"`
	Latitude    float64  `json:"latitude,omitempty"`
	Longitude   float64  `json:"longitude,omitempty"`
	Date        string   `json:"date,omitempty"`
	URL         string   `json:"url,omitempty"`
	Owner       string   `json:"owner,omitempty"`
}

// OwnerShared marks events from the shared pool.
const OwnerShared = "all"

// NoEventsSentinel is the fixed string fed to prompts when retrieval found
// nothing. Prompt logic matches on it, so it must stay stable.
const NoEventsSentinel = "События не найдены."

// Text returns the searchable text of the event, embedded for similarity search.
func (e *Event) Text() string {
	parts := []string{e.Title, e.Description}
	if len(e.Tags) > 0 {
		parts = append(parts, strings.Join(e.Tags, " "))
	}
	if e.Location != "" {
		parts = append(parts, e.Location)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// FormatForContext renders events into the deterministic block injected into
// prompts. Returns NoEventsSentinel for an empty slice.
func FormatForContext(events []Event) string {
	if len(events) == 0 {
		return NoEventsSentinel
	}

	formatted := make([]string, 0, len(events))
	for i, e := range events {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s", i+1, e.Title)
		if e.Description != "" {
			b.WriteString("\n   Описание: " + e.Description)
		}
		if e.Location != "" {
			b.WriteString("\n   Местоположение: " + e.Location)
		}
		if e.Date != "" {
			b.WriteString("\n   Дата: " + e.Date)
		}
		if len(e.Tags) > 0 {
			b.WriteString("\n   Теги: " + strings.Join(e.Tags, ", "))
		}
		formatted = append(formatted, b.String())
	}
	return strings.Join(formatted, "\n\n")
}
