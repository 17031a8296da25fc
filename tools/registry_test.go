package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type stubSearcher struct {
	pages []Page
}

func (s *stubSearcher) Search(context.Context, string, int) ([]Page, error) {
	return s.pages, nil
}

func TestBuildRegistryNilDeps(t *testing.T) {
	reg := BuildRegistry(Deps{})
	if tools := reg.List(); len(tools) != 0 {
		t.Errorf("no deps should mean no tools, got %d", len(tools))
	}
}

func TestBuildRegistryPartialDeps(t *testing.T) {
	geocoder := &stubGeocoder{points: map[string]GeoPoint{}}
	reg := BuildRegistry(Deps{
		Geocoder: geocoder,
		Routes:   NewRouteService(geocoder),
		Searcher: &stubSearcher{},
	})

	names := make(map[string]bool)
	for _, tl := range reg.List() {
		names[tl.Name] = true
	}
	if !names["get_route_info"] || !names["search_web"] {
		t.Errorf("route and search tools missing: %v", names)
	}
	// Weather tools need a weather client.
	if names["get_weather"] || names["get_weather_by_address"] {
		t.Errorf("weather tools registered without a client: %v", names)
	}
}

func TestRouteToolReturnsFailureAsData(t *testing.T) {
	geocoder := &stubGeocoder{points: map[string]GeoPoint{}}
	reg := BuildRegistry(Deps{Geocoder: geocoder, Routes: NewRouteService(geocoder)})

	out, err := reg.Execute(context.Background(), "get_route_info", map[string]any{
		"from_address": "откуда",
		"to_address":   "куда",
	})
	if err != nil {
		t.Fatalf("handler failures must be in-band, got %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("handler output is not JSON: %v", err)
	}
	if success, _ := result["success"].(bool); success {
		t.Errorf("unresolved addresses should fail in-band: %s", out)
	}
}

func TestRouteToolSuccess(t *testing.T) {
	geocoder := &stubGeocoder{points: map[string]GeoPoint{
		"a": {Lon: 37.62, Lat: 55.75},
		"b": {Lon: 37.64, Lat: 55.76},
	}}
	reg := BuildRegistry(Deps{Geocoder: geocoder, Routes: NewRouteService(geocoder)})

	out, err := reg.Execute(context.Background(), "get_route_info", map[string]any{
		"from_address": "a",
		"to_address":   "b",
		"modes":        []any{"walking"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var result struct {
		Success bool                    `json:"success"`
		Modes   map[string]ModeEstimate `json:"modes"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if !result.Success {
		t.Fatalf("route failed: %s", out)
	}
	if len(result.Modes) != 1 {
		t.Errorf("modes = %v, want only walking", result.Modes)
	}
	if result.Modes["walking"].DurationMin <= 0 {
		t.Errorf("walking duration must be positive: %+v", result.Modes)
	}
}

func TestSearchWebToolPreviews(t *testing.T) {
	reg := BuildRegistry(Deps{Searcher: &stubSearcher{pages: []Page{
		{
			URL:   "https://example.com/afisha",
			Title: "Афиша",
			HTML:  `<html><head><script>var x=1;</script></head><body><h1>Концерты</h1><p>сегодня в городе</p></body></html>`,
		},
		{URL: "https://example.com/empty", Title: "Пусто", HTML: ""},
	}}})

	out, err := reg.Execute(context.Background(), "search_web", map[string]any{"query": "концерты"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var result struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
		Results []struct {
			URL         string `json:"url"`
			TextPreview string `json:"text_preview"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if !result.Success || result.Count != 2 {
		t.Fatalf("got %s", out)
	}
	preview := result.Results[0].TextPreview
	if !strings.Contains(preview, "Концерты") || strings.Contains(preview, "var x=1") {
		t.Errorf("preview should keep text and drop scripts: %q", preview)
	}
	if result.Results[1].TextPreview != "" {
		t.Errorf("empty page should have empty preview, got %q", result.Results[1].TextPreview)
	}
}

func TestSearchWebToolMissingQuery(t *testing.T) {
	reg := BuildRegistry(Deps{Searcher: &stubSearcher{}})
	out, err := reg.Execute(context.Background(), "search_web", map[string]any{})
	if err == nil {
		// Missing required args are caught by validation before the handler.
		t.Fatalf("expected validation error, got %s", out)
	}
	if !strings.Contains(err.Error(), "query") {
		t.Errorf("err = %v", err)
	}
}

func TestTextPreviewCapsLength(t *testing.T) {
	long := "<p>" + strings.Repeat("слово ", 2000) + "</p>"
	preview := TextPreview(long)
	if got := len([]rune(preview)); got > maxPreviewRunes {
		t.Errorf("preview length = %d runes, want <= %d", got, maxPreviewRunes)
	}
}

func TestFloatArgShapes(t *testing.T) {
	args := map[string]any{
		"f": 1.5,
		"i": 2,
		"n": json.Number("3.25"),
		"s": "x",
	}
	if v, err := floatArg(args, "f"); err != nil || v != 1.5 {
		t.Errorf("float64: %v, %v", v, err)
	}
	if v, err := floatArg(args, "i"); err != nil || v != 2 {
		t.Errorf("int: %v, %v", v, err)
	}
	if v, err := floatArg(args, "n"); err != nil || v != 3.25 {
		t.Errorf("json.Number: %v, %v", v, err)
	}
	if _, err := floatArg(args, "s"); err == nil {
		t.Errorf("string must not pass as number")
	}
	if _, err := floatArg(args, "missing"); err == nil {
		t.Errorf("missing arg must fail")
	}
}
