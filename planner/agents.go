package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/gateway"
	"github.com/mkarasev/daytrip/pkg/logging"
	"github.com/mkarasev/daytrip/tool"
)

const plannerSystemPreamble = `Ты опытный планировщик маршрутов и походов.
Твоя задача - создать оптимальный план похода, учитывая все события, ограничения и доступную информацию.

ВАЖНО: Используй точные данные о времени в пути между событиями! Если информация о маршрутах не предоставлена, используй инструменты для её получения.
План должен быть реалистичным, учитывать время в пути между событиями, погодные условия и другие факторы.
Если есть критика предыдущего плана, обязательно учти её при создании нового плана.

ВЫБОР ТРАНСПОРТА:
- Если время в пути пешком (walking) меньше 10 минут - используй walking (пешком)
- Если время в пути пешком больше 10 минут - используй bus (автобус) или car (машина), если доступно
- Всегда сравнивай время в пути для разных видов транспорта и выбирай самый быстрый и удобный вариант
- Учитывай предпочтения пользователя из ограничений, но не следуй им слепо, если это неоптимально

Доступные инструменты:
- get_route_info: получить информацию о маршруте между двумя адресами (ОБЯЗАТЕЛЬНО используй для получения точного времени в пути!)
  Этот инструмент возвращает время в пути для walking, car и bus - сравнивай их и выбирай оптимальный!
- get_weather_by_address: получить погоду по адресу
- search_web: поиск информации в интернете`

const reasoningSystemPrompt = `Ты опытный планировщик маршрутов и походов.
Твоя задача - проанализировать доступные события и ограничения, чтобы подготовиться к созданию оптимального плана.

Сначала проанализируй ситуацию, выяви важные соображения, возможные проблемы и определи стратегию планирования.
Используй доступные инструменты для получения дополнительной информации (погода, маршруты, информация из интернета), если это необходимо.

При планировании учитывай выбор транспорта:
- Для коротких расстояний (< 10 минут пешком) - walking
- Для длинных расстояний (> 10 минут пешком) - bus или car (выбирай оптимальный)

Доступные инструменты:
- get_route_info: получить информацию о маршруте между двумя адресами (возвращает время для walking, bus, car)
- get_weather_by_address: получить погоду по адресу
- search_web: поиск информации в интернете`

const criticSystemPrompt = `Ты опытный критик планов маршрутов и походов.
Твоя задача - тщательно проанализировать предложенный план, выявить его сильные и слабые стороны,
найти возможные проблемы и предложить конкретные улучшения.

Будь конструктивным, но честным. Укажи как на сильные стороны, так и на проблемы.
Если нужно проверить информацию (например, погоду или маршруты), используй доступные инструменты.`

const reasoningSchema = `{"analysis": "строка с анализом ситуации", "considerations": ["список соображений"], "challenges": ["список возможных проблем"], "strategy": "строка со стратегией планирования"}`

const planSchema = `{"items": [{"event_name": "название", "event_address": "адрес", "start_time": "HH:MM", "end_time": "HH:MM", "duration_minutes": 60, "transport_mode": "walking|car|bus", "travel_time_minutes": 15, "notes": "заметки"}], "total_duration_minutes": 180, "total_travel_time_minutes": 30, "summary": "краткое описание плана", "included_events": ["названия включённых событий"], "excluded_events": ["названия исключённых событий"]}`

const critiqueSchema = `{"overall_assessment": "общая оценка плана", "strengths": ["сильные стороны"], "weaknesses": ["слабые стороны"], "suggestions": ["конкретные предложения"], "critical_issues": ["критические проблемы"], "needs_revision": false}`

func withJSONInstruction(system, schema string) string {
	return system + "\n\nОтветь строго одним JSON-объектом без пояснений и без markdown, по схеме:\n" + schema
}

// Agent builds reasoning and plans over the model gateway.
type Agent struct {
	gw       *gateway.Gateway
	registry *tool.Registry
	log      *slog.Logger
}

// NewAgent creates a planner agent. The registry may be empty; the agent then
// plans without external lookups.
func NewAgent(gw *gateway.Gateway, registry *tool.Registry) *Agent {
	if registry == nil {
		registry = tool.NewRegistry()
	}
	return &Agent{
		gw:       gw,
		registry: registry,
		log:      logging.WithComponent("planner"),
	}
}

// CreateReasoning produces the structured analysis that precedes a plan.
func (a *Agent) CreateReasoning(ctx context.Context, state *GraphState) (*Reasoning, error) {
	events := state.InputData.Events
	a.log.Info("creating reasoning", "events", len(events))

	userPrompt := fmt.Sprintf(`Пользователь хочет создать план похода со следующими событиями:

%s

%s

Промпт пользователя: %s

Проанализируй ситуацию и подготовь рассуждения перед созданием плана.
Используй инструменты для получения дополнительной информации, если нужно.`,
		eventsBlock(events), constraintsBlock(state.InputData.Constraints), state.InputData.UserPrompt)

	reasoning, err := gateway.ParseWithTools[Reasoning](ctx, a.gw,
		withJSONInstruction(reasoningSystemPrompt, reasoningSchema), userPrompt, a.registry)
	if err != nil {
		return nil, fmt.Errorf("reasoning failed: %w", err)
	}

	a.log.Info("reasoning ready",
		"considerations", len(reasoning.Considerations),
		"challenges", len(reasoning.Challenges))
	return reasoning, nil
}

// CreatePlan produces an itinerary from the current state. Earlier reasoning
// and critique, when present, are folded into the prompt.
func (a *Agent) CreatePlan(ctx context.Context, state *GraphState) (*Plan, error) {
	events := state.InputData.Events
	a.log.Info("creating plan", "events", len(events),
		"has_reasoning", state.Reasoning != nil, "has_critique", state.Critique != nil)

	mapsBlock := mapsInfoBlock(state.MapsInfo)

	var routeInstruction string
	if mapsBlock != "" {
		routeInstruction = `КРИТИЧЕСКИ ВАЖНО: Используй точные данные о времени в пути из раздела ниже!
Для каждого перехода между событиями:
1. Сравни время в пути для всех видов транспорта (walking, bus, car)
2. Выбирай оптимальный транспорт:
   - Если walking < 10 минут → используй walking
   - Если walking > 10 минут → используй bus или car (выбирай самый быстрый)
3. Бери время в пути из предоставленных данных для выбранного транспорта, а не придумывай сам.`
	} else {
		routeInstruction = `КРИТИЧЕСКИ ВАЖНО: Для получения точного времени в пути между событиями ОБЯЗАТЕЛЬНО используй инструмент get_route_info!
Инструмент вернет время для walking, bus и car - сравнивай их и выбирай оптимальный:
- Если walking < 10 минут → используй walking
- Если walking > 10 минут → используй bus или car (выбирай самый быстрый)
Не придумывай время в пути сам - всегда вызывай инструмент для каждой пары событий.`
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Создай план похода со следующими событиями:\n\n%s\n\n%s\n",
		eventsBlock(events), constraintsBlock(state.InputData.Constraints))
	if block := reasoningBlock(state.Reasoning); block != "" {
		b.WriteString("\n" + block + "\n")
	}
	if block := critiqueBlock(state.Critique); block != "" {
		b.WriteString("\n" + block + "\n")
	}
	if block := weatherInfoBlock(state.WeatherInfo); block != "" {
		b.WriteString("\n" + block)
	}
	if mapsBlock != "" {
		b.WriteString("\n" + mapsBlock)
	}
	if len(state.WebInfo) > 0 {
		fmt.Fprintf(&b, "\nИнформация из интернета: %v\n", state.WebInfo)
	}
	fmt.Fprintf(&b, `
Промпт пользователя: %s

%s

Создай детальный план, который включает все обязательные события и максимально возможное количество других событий с учетом ограничений.
Для каждого события укажи:
- Время начала и окончания
- Режим транспорта (walking, car, bus) - ВЫБИРАЙ ОПТИМАЛЬНЫЙ на основе времени в пути:
  * walking - только если время в пути < 10 минут
  * bus или car - если время в пути пешком > 10 минут (выбирай самый быстрый вариант)
- Время в пути до этого события (в минутах) - ИСПОЛЬЗУЙ ТОЧНЫЕ ДАННЫЕ ИЗ МАРШРУТОВ для выбранного транспорта!

ВАЖНО: При выборе транспорта сравнивай время в пути для всех доступных вариантов (walking, bus, car) и выбирай самый быстрый и удобный!

Даже если тебе не хватает данных (например, отсутствует информация о маршрутах, времени в пути или других деталях), ОБЯЗАТЕЛЬНО все равно составь итоговый план похода на основе доступной информации, с учетом всех имеющихся ограничений и событий.
Если чего-то не хватает, используй инструменты для получения информации, но всё равно выдай итоговый детальный план.`,
		state.InputData.UserPrompt, routeInstruction)

	plan, err := gateway.ParseWithTools[Plan](ctx, a.gw,
		withJSONInstruction(plannerSystemPreamble, planSchema), b.String(), a.registry)
	if err != nil {
		return nil, fmt.Errorf("plan creation failed: %w", err)
	}
	plan.SortItems()

	a.log.Info("plan ready",
		"items", len(plan.Items),
		"total_duration_min", plan.TotalDurationMinutes,
		"travel_min", plan.TotalTravelTimeMinutes,
		"excluded", len(plan.ExcludedEvents))
	return plan, nil
}

// RevisePlan rebuilds the plan with the pending critique folded in.
func (a *Agent) RevisePlan(ctx context.Context, state *GraphState) (*Plan, error) {
	if state.Critique != nil {
		a.log.Info("revising plan",
			"suggestions", len(state.Critique.Suggestions),
			"critical_issues", len(state.Critique.CriticalIssues))
	}
	return a.CreatePlan(ctx, state)
}

// Critic reviews plans.
type Critic struct {
	gw       *gateway.Gateway
	registry *tool.Registry
	log      *slog.Logger
}

// NewCritic creates a critic agent.
func NewCritic(gw *gateway.Gateway, registry *tool.Registry) *Critic {
	if registry == nil {
		registry = tool.NewRegistry()
	}
	return &Critic{
		gw:       gw,
		registry: registry,
		log:      logging.WithComponent("critic"),
	}
}

// CritiquePlan reviews the current plan against the events, constraints and
// collected context. Errors when the state has no plan yet.
func (c *Critic) CritiquePlan(ctx context.Context, state *GraphState) (*Critique, error) {
	plan := state.Plan
	if plan == nil {
		return nil, fmt.Errorf("no plan to critique")
	}
	c.log.Info("critiquing plan", "items", len(plan.Items),
		"total_duration_min", plan.TotalDurationMinutes)

	var b strings.Builder
	fmt.Fprintf(&b, "Проанализируй следующий план похода:\n\n%s\n\nИсходные события:\n%s\n\n%s\n",
		planBlock(plan), eventsBlock(state.InputData.Events), constraintsBlock(state.InputData.Constraints))
	if len(state.WeatherInfo) > 0 {
		fmt.Fprintf(&b, "\nИнформация о погоде: %v\n", state.WeatherInfo)
	}
	if len(state.MapsInfo) > 0 {
		fmt.Fprintf(&b, "\nИнформация о маршрутах: %v\n", state.MapsInfo)
	}
	fmt.Fprintf(&b, `
Промпт пользователя: %s

Оцени план по следующим критериям:
1. Соответствие ограничениям (время, транспорт, бюджет)
2. Реалистичность временных интервалов
3. Логичность последовательности событий
4. Учет всех обязательных событий
5. Оптимальность использования времени
6. Учет погодных условий и других факторов

Дай конструктивную критику с конкретными предложениями по улучшению.`, state.InputData.UserPrompt)

	critique, err := gateway.ParseWithTools[Critique](ctx, c.gw,
		withJSONInstruction(criticSystemPrompt, critiqueSchema), b.String(), c.registry)
	if err != nil {
		return nil, fmt.Errorf("critique failed: %w", err)
	}

	c.log.Info("critique ready",
		"strengths", len(critique.Strengths),
		"weaknesses", len(critique.Weaknesses),
		"suggestions", len(critique.Suggestions),
		"critical_issues", len(critique.CriticalIssues),
		"needs_revision", critique.NeedsRevision)
	return critique, nil
}

func eventLine(e event.Event) string {
	title := e.Title
	if title == "" {
		title = "Без названия"
	}
	location := e.Location
	if location == "" {
		location = "адрес не указан"
	}

	parts := []string{"- " + title, "(" + location + ")"}
	if e.Date != "" {
		parts = append(parts, "время: "+e.Date)
	}
	if e.URL != "" {
		parts = append(parts, "ссылка: "+e.URL)
	}
	return strings.Join(parts, " — ")
}

func eventsBlock(events []event.Event) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, eventLine(e))
	}
	return strings.Join(lines, "\n")
}

func constraintsBlock(c Constraints) string {
	return strings.TrimSpace(fmt.Sprintf(`Ограничения:
- Время начала: %s
- Время окончания: %s
- Максимальное время: %s минут
- Предпочтительный транспорт: %s
- Бюджет: %s
- Другие ограничения: %s`,
		timeOrUnset(c.StartTime),
		timeOrUnset(c.EndTime),
		intOrUnset(c.MaxTotalTimeMinutes),
		stringOrUnset(c.PreferredTransport),
		floatOrUnset(c.Budget),
		listOrNone(c.OtherConstraints)))
}

func reasoningBlock(r *Reasoning) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf(`Предыдущие рассуждения:
Анализ: %s
Соображения: %s
Проблемы: %s
Стратегия: %s`,
		r.Analysis,
		strings.Join(r.Considerations, ", "),
		strings.Join(r.Challenges, ", "),
		r.Strategy))
}

func critiqueBlock(c *Critique) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf(`Критика предыдущего плана:
Общая оценка: %s
Сильные стороны: %s
Слабые стороны: %s
Предложения: %s
Критические проблемы: %s`,
		c.OverallAssessment,
		strings.Join(c.Strengths, ", "),
		strings.Join(c.Weaknesses, ", "),
		strings.Join(c.Suggestions, ", "),
		strings.Join(c.CriticalIssues, ", ")))
}

func planBlock(p *Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, `План:
Общая продолжительность: %d минут
Общее время в пути: %d минут
Краткое описание: %s

Элементы плана:`,
		p.TotalDurationMinutes, p.TotalTravelTimeMinutes, p.Summary)

	for _, item := range p.Items {
		travel := "не указано"
		if item.TravelTimeMinutes != nil {
			travel = fmt.Sprintf("%d", *item.TravelTimeMinutes)
		}
		fmt.Fprintf(&b, `

- %s (%s)
  Время: %s - %s
  Продолжительность: %d минут
  Транспорт: %s
  Время в пути: %s минут
  Заметки: %s`,
			item.EventName, item.EventAddress,
			item.StartTime.String(), item.EndTime.String(),
			item.DurationMinutes, item.TransportMode, travel, item.Notes)
	}
	return b.String()
}

func weatherInfoBlock(info map[string]any) string {
	if len(info) == 0 {
		return ""
	}
	addresses := make([]string, 0, len(info))
	for address := range info {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	var b strings.Builder
	b.WriteString("Информация о погоде:\n")
	wrote := false
	for _, address := range addresses {
		data, ok := info[address].(map[string]any)
		if !ok || data["success"] != true {
			continue
		}
		fmt.Fprintf(&b, "- %s: %v, температура: %v°C\n",
			address, valueOr(data, "description", "N/A"), valueOr(data, "temperature", "N/A"))
		wrote = true
	}
	if !wrote {
		return ""
	}
	return b.String()
}

func mapsInfoBlock(info map[string]any) string {
	if len(info) == 0 {
		return ""
	}
	routeKeys := make([]string, 0, len(info))
	for key := range info {
		routeKeys = append(routeKeys, key)
	}
	sort.Strings(routeKeys)

	var b strings.Builder
	b.WriteString("📍 ВАЖНО: Информация о времени в пути между событиями:\n")
	b.WriteString("СРАВНИВАЙ время для разных видов транспорта и выбирай оптимальный!\n")
	b.WriteString("Рекомендация: если walking > 10 минут, используй bus или car (выбирай самый быстрый).\n\n")

	wrote := false
	for _, routeKey := range routeKeys {
		routeData, ok := info[routeKey].(map[string]any)
		if !ok || routeData["success"] != true {
			continue
		}
		modes, _ := routeData["modes"].(map[string]any)
		fmt.Fprintf(&b, "Маршрут: %s\n", routeKey)
		wrote = true

		type modeEntry struct {
			name        string
			durationMin float64
			distanceKm  float64
		}
		entries := make([]modeEntry, 0, len(modes))
		for name, raw := range modes {
			data, _ := raw.(map[string]any)
			entries = append(entries, modeEntry{
				name:        name,
				durationMin: floatValue(data, "duration_min"),
				distanceKm:  floatValue(data, "distance_km"),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].durationMin < entries[j].durationMin })

		for i, entry := range entries {
			hours := int(entry.durationMin) / 60
			minutes := int(entry.durationMin) % 60
			timeStr := fmt.Sprintf("%dмин", minutes)
			if hours > 0 {
				timeStr = fmt.Sprintf("%dч %dмин", hours, minutes)
			}

			recommendation := ""
			if entry.name == "walking" && entry.durationMin > 10 {
				recommendation = " ⚠️ (слишком долго, лучше использовать bus/car)"
			} else if i == 0 {
				recommendation = " ✅ (самый быстрый вариант)"
			}
			fmt.Fprintf(&b, "  • %s: %s (%.2f км)%s\n", entry.name, timeStr, entry.distanceKm, recommendation)
		}
		b.WriteString("\n")
	}
	if !wrote {
		return ""
	}
	return b.String()
}

func valueOr(data map[string]any, key string, fallback any) any {
	if v, ok := data[key]; ok && v != nil {
		return v
	}
	return fallback
}

func floatValue(data map[string]any, key string) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return 0
}

func timeOrUnset(t *TimeOfDay) string {
	if t == nil {
		return "не указано"
	}
	return t.String()
}

func intOrUnset(v *int) string {
	if v == nil {
		return "не указано"
	}
	return fmt.Sprintf("%d", *v)
}

func floatOrUnset(v *float64) string {
	if v == nil {
		return "не указано"
	}
	return fmt.Sprintf("%g", *v)
}

func stringOrUnset(s string) string {
	if s == "" {
		return "не указано"
	}
	return s
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "нет"
	}
	return strings.Join(items, ", ")
}
