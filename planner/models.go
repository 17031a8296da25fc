// Package planner turns retrieved events and constraints into a critiqued,
// time-ordered day plan.
package planner

import (
	"sort"

	"github.com/mkarasev/daytrip/event"
)

// Constraints are the planning limits extracted from the user's query.
// All fields are optional; a zero value means "not specified".
type Constraints struct {
	StartTime           *TimeOfDay `json:"start_time"`
	EndTime             *TimeOfDay `json:"end_time"`
	MaxTotalTimeMinutes *int       `json:"max_total_time_minutes"`
	PreferredTransport  string     `json:"preferred_transport,omitempty"`
	Budget              *float64   `json:"budget"`
	MaxEvents           *int       `json:"max_events"`
	OtherConstraints    []string   `json:"other_constraints,omitempty"`
}

// InputData is the handoff contract between retrieval and planning.
// Events may be empty; planning must handle that explicitly.
type InputData struct {
	Events      []event.Event `json:"events"`
	UserPrompt  string        `json:"user_prompt"`
	Constraints Constraints   `json:"constraints"`
}

// Reasoning is the planner's structured analysis produced before the plan.
type Reasoning struct {
	Analysis       string   `json:"analysis"`
	Considerations []string `json:"considerations"`
	Challenges     []string `json:"challenges"`
	Strategy       string   `json:"strategy"`
}

// PlanItem is one stop of the itinerary.
type PlanItem struct {
	EventName         string    `json:"event_name"`
	EventAddress      string    `json:"event_address"`
	StartTime         TimeOfDay `json:"start_time"`
	EndTime           TimeOfDay `json:"end_time"`
	DurationMinutes   int       `json:"duration_minutes"`
	TransportMode     string    `json:"transport_mode"`
	TravelTimeMinutes *int      `json:"travel_time_minutes"`
	Notes             string    `json:"notes"`
}

// Plan is the itinerary produced by the planner.
type Plan struct {
	Items                  []PlanItem `json:"items"`
	TotalDurationMinutes   int        `json:"total_duration_minutes"`
	TotalTravelTimeMinutes int        `json:"total_travel_time_minutes"`
	Summary                string     `json:"summary"`
	IncludedEvents         []string   `json:"included_events"`
	ExcludedEvents         []string   `json:"excluded_events"`
}

// SortItems orders the plan chronologically by start time. Model output is
// requested sorted but never guaranteed.
func (p *Plan) SortItems() {
	sort.SliceStable(p.Items, func(i, j int) bool {
		return p.Items[i].StartTime.Before(p.Items[j].StartTime)
	})
}

// Truncate drops items beyond maxItems, moving the cut events to
// ExcludedEvents. No-op when maxItems <= 0 or the plan already fits.
func (p *Plan) Truncate(maxItems int) {
	if maxItems <= 0 || len(p.Items) <= maxItems {
		return
	}
	for _, item := range p.Items[maxItems:] {
		p.ExcludedEvents = append(p.ExcludedEvents, item.EventName)
	}
	p.Items = p.Items[:maxItems]

	included := make([]string, 0, maxItems)
	for _, item := range p.Items {
		included = append(included, item.EventName)
	}
	p.IncludedEvents = included
}

// Critique is the critic's structured review of a plan.
type Critique struct {
	OverallAssessment string   `json:"overall_assessment"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	Suggestions       []string `json:"suggestions"`
	CriticalIssues    []string `json:"critical_issues"`
	NeedsRevision     bool     `json:"needs_revision"`
}

// GraphState carries one planning run. Each run owns its state privately.
type GraphState struct {
	InputData     InputData
	Reasoning     *Reasoning
	Plan          *Plan
	Critique      *Critique
	Iteration     int
	MaxIterations int
	WeatherInfo   map[string]any
	MapsInfo      map[string]any
	WebInfo       map[string]any
	Logs          []string
}

// OutputResult is what a planning run hands to the presentation layer.
// FinalPlan is never nil; a placeholder Plan is substituted when planning
// failed.
type OutputResult struct {
	FinalPlan   *Plan          `json:"final_plan"`
	Reasoning   *Reasoning     `json:"reasoning,omitempty"`
	Critique    *Critique      `json:"critique,omitempty"`
	Iterations  int            `json:"iterations"`
	WeatherInfo map[string]any `json:"weather_info"`
	MapsInfo    map[string]any `json:"maps_info"`
	WebInfo     map[string]any `json:"web_info"`
	FinalText   string         `json:"final_text"`
	Logs        []string       `json:"-"`
}
