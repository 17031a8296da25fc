package planner

import (
	"fmt"
	"strings"
)

const noRouteMessage = "❌ Не удалось составить план."

var transportEmoji = map[string]string{
	"walking":   "🚶",
	"walk":      "🚶",
	"пешком":    "🚶",
	"bus":       "🚌",
	"автобус":   "🚌",
	"car":       "🚗",
	"машина":    "🚗",
	"такси":     "🚕",
	"taxi":      "🚕",
	"metro":     "🚇",
	"метро":     "🚇",
	"bike":      "🚲",
	"велосипед": "🚲",
}

var numberEmoji = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// RenderTelegramMessage formats a plan as a Telegram-ready itinerary. A nil
// plan or one without items degrades to the summary or a fallback line.
func RenderTelegramMessage(plan *Plan) string {
	if plan == nil {
		return noRouteMessage
	}
	if len(plan.Items) == 0 {
		if plan.Summary != "" {
			return plan.Summary
		}
		return noRouteMessage
	}

	divider := strings.Repeat("━", 28)

	var lines []string
	lines = append(lines, "🗺 ТВОЙ МАРШРУТ НА СЕГОДНЯ")
	lines = append(lines, divider)
	lines = append(lines, "")

	for i, item := range plan.Items {
		num := fmt.Sprintf("▸ %d.", i+1)
		if i < len(numberEmoji) {
			num = numberEmoji[i]
		}

		eventName := item.EventName
		if eventName == "" {
			eventName = "Без названия"
		}

		lines = append(lines, fmt.Sprintf("%s  %s", num, eventName))
		lines = append(lines, fmt.Sprintf("    🕐 %s — %s", item.StartTime.String(), item.EndTime.String()))

		if item.EventAddress != "" {
			lines = append(lines, fmt.Sprintf("    📍 %s", item.EventAddress))
		}

		if transportLine := renderTransportLine(item, i); transportLine != "" {
			lines = append(lines, "    "+transportLine)
		}

		if item.Notes != "" {
			lines = append(lines, fmt.Sprintf("    💡 %s", item.Notes))
		}
		lines = append(lines, "")
	}

	lines = append(lines, divider)
	lines = append(lines, "📊 ИТОГО:")

	if plan.TotalDurationMinutes > 0 {
		hours := plan.TotalDurationMinutes / 60
		mins := plan.TotalDurationMinutes % 60
		if hours > 0 {
			lines = append(lines, fmt.Sprintf("⏱ Общее время: %dч %dмин", hours, mins))
		} else {
			lines = append(lines, fmt.Sprintf("⏱ Общее время: %d мин", mins))
		}
	}
	if plan.TotalTravelTimeMinutes > 0 {
		lines = append(lines, fmt.Sprintf("🚶 В пути: %d мин", plan.TotalTravelTimeMinutes))
	}
	lines = append(lines, fmt.Sprintf("📍 Мест в маршруте: %d", len(plan.Items)))

	if plan.Summary != "" {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("💬 %s", plan.Summary))
	}

	lines = append(lines, "")
	lines = append(lines, "✨ Хорошего дня!")

	return strings.Join(lines, "\n")
}

func renderTransportLine(item PlanItem, index int) string {
	if index == 0 {
		return ""
	}
	transport := item.TransportMode
	if transport == "" {
		return ""
	}
	emoji, ok := transportEmoji[strings.ToLower(transport)]
	if !ok {
		emoji = "➡️"
	}
	if item.TravelTimeMinutes != nil && *item.TravelTimeMinutes > 0 {
		return fmt.Sprintf("%s %s, %d мин в пути", emoji, transport, *item.TravelTimeMinutes)
	}
	return fmt.Sprintf("%s %s", emoji, transport)
}
