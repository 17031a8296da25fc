package planner

import (
	"strings"
	"testing"
)

func intptr(n int) *int { return &n }

func samplePlan() *Plan {
	return &Plan{
		Items: []PlanItem{
			{
				EventName:       "Выставка современного искусства",
				EventAddress:    "ул. Тверская, 1",
				StartTime:       TimeOfDay{Hour: 10},
				EndTime:         TimeOfDay{Hour: 12},
				DurationMinutes: 120,
				Notes:           "Взять билеты заранее",
			},
			{
				EventName:         "Обед в кафе",
				EventAddress:      "ул. Арбат, 10",
				StartTime:         TimeOfDay{Hour: 12, Minute: 30},
				EndTime:           TimeOfDay{Hour: 13, Minute: 30},
				DurationMinutes:   60,
				TransportMode:     "walking",
				TravelTimeMinutes: intptr(15),
			},
		},
		TotalDurationMinutes:   210,
		TotalTravelTimeMinutes: 15,
		Summary:                "Спокойный день в центре",
	}
}

func TestRenderTelegramMessage(t *testing.T) {
	text := RenderTelegramMessage(samplePlan())

	for _, want := range []string{
		"🗺 ТВОЙ МАРШРУТ НА СЕГОДНЯ",
		"1️⃣  Выставка современного искусства",
		"    🕐 10:00 — 12:00",
		"    📍 ул. Тверская, 1",
		"    💡 Взять билеты заранее",
		"2️⃣  Обед в кафе",
		"    🚶 walking, 15 мин в пути",
		"📊 ИТОГО:",
		"⏱ Общее время: 3ч 30мин",
		"🚶 В пути: 15 мин",
		"📍 Мест в маршруте: 2",
		"💬 Спокойный день в центре",
		"✨ Хорошего дня!",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered message missing %q\n%s", want, text)
		}
	}
}

func TestRenderFirstItemHasNoTransportLine(t *testing.T) {
	plan := samplePlan()
	plan.Items[0].TransportMode = "bus"
	plan.Items[0].TravelTimeMinutes = intptr(20)

	text := RenderTelegramMessage(plan)
	if strings.Contains(text, "🚌 bus, 20 мин в пути") {
		t.Errorf("first item must not carry a transport line:\n%s", text)
	}
}

func TestRenderUnknownTransportFallback(t *testing.T) {
	plan := samplePlan()
	plan.Items[1].TransportMode = "teleport"

	text := RenderTelegramMessage(plan)
	if !strings.Contains(text, "➡️ teleport") {
		t.Errorf("unknown transport should use fallback emoji:\n%s", text)
	}
}

func TestRenderNilPlan(t *testing.T) {
	if got := RenderTelegramMessage(nil); got != "❌ Не удалось составить план." {
		t.Errorf("nil plan render = %q", got)
	}
}

func TestRenderEmptyItemsFallsBackToSummary(t *testing.T) {
	plan := &Plan{Summary: "Ничего не нашлось"}
	if got := RenderTelegramMessage(plan); got != "Ничего не нашлось" {
		t.Errorf("empty plan render = %q", got)
	}

	plan.Summary = ""
	if got := RenderTelegramMessage(plan); got != "❌ Не удалось составить план." {
		t.Errorf("empty plan without summary render = %q", got)
	}
}

func TestRenderShortTotalDuration(t *testing.T) {
	plan := samplePlan()
	plan.TotalDurationMinutes = 45

	text := RenderTelegramMessage(plan)
	if !strings.Contains(text, "⏱ Общее время: 45 мин") {
		t.Errorf("sub-hour duration should render minutes only:\n%s", text)
	}
}
