package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mkarasev/daytrip/tool"
)

// Deps carries the external clients the agent tools are built on. Any nil
// dependency simply leaves the matching tools out of the registry, so the
// agent degrades to whatever services are configured.
type Deps struct {
	Weather  *WeatherClient
	Geocoder Geocoder
	Routes   *RouteService
	Searcher WebSearcher
}

// DepsFromEnv builds whatever clients the environment has keys for. Missing
// keys are not errors.
func DepsFromEnv() Deps {
	var deps Deps
	if w, err := NewWeatherClientFromEnv(); err == nil {
		deps.Weather = w
	}
	if g, err := NewYandexGeocoderFromEnv(); err == nil {
		deps.Geocoder = g
		deps.Routes = NewRouteService(g)
	}
	if s, err := NewTavilySearcherFromEnv(); err == nil {
		deps.Searcher = s
	}
	return deps
}

// BuildRegistry assembles the agent tool registry from the given dependencies.
func BuildRegistry(deps Deps) *tool.Registry {
	reg := tool.NewRegistry()

	if deps.Weather != nil {
		reg.Register(weatherTool(deps.Weather))
	}
	if deps.Weather != nil && deps.Geocoder != nil {
		reg.Register(weatherByAddressTool(deps.Weather, deps.Geocoder))
	}
	if deps.Routes != nil {
		reg.Register(routeInfoTool(deps.Routes))
	}
	if deps.Searcher != nil {
		reg.Register(searchWebTool(deps.Searcher))
	}
	return reg
}

func weatherTool(client *WeatherClient) *tool.Tool {
	return &tool.Tool{
		Name:        "get_weather",
		Description: "Получить текущую погоду по координатам.",
		Parameters: []tool.Parameter{
			{Name: "lat", Type: "number", Description: "Широта", Required: true},
			{Name: "lon", Type: "number", Description: "Долгота", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			lat, err := floatArg(args, "lat")
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			lon, err := floatArg(args, "lon")
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			weather, err := client.GetWeather(ctx, lat, lon)
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			return tool.OK(weatherFields(weather)).Encode(), nil
		},
	}
}

func weatherByAddressTool(client *WeatherClient, geocoder Geocoder) *tool.Tool {
	return &tool.Tool{
		Name:        "get_weather_by_address",
		Description: "Получить текущую погоду по адресу.",
		Parameters: []tool.Parameter{
			{Name: "address", Type: "string", Description: "Адрес места", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			address, err := stringArg(args, "address")
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			point, err := geocoder.AddressToGeoPoint(ctx, address)
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			if point == nil {
				return tool.Fail(fmt.Errorf("не удалось найти координаты для адреса: %s", address)).Encode(), nil
			}
			weather, err := client.GetWeather(ctx, point.Lat, point.Lon)
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			fields := weatherFields(weather)
			fields["address"] = address
			fields["coordinates"] = map[string]any{"lat": point.Lat, "lon": point.Lon}
			return tool.OK(fields).Encode(), nil
		},
	}
}

func routeInfoTool(routes *RouteService) *tool.Tool {
	return &tool.Tool{
		Name:        "get_route_info",
		Description: "Получить информацию о маршруте между двумя адресами.",
		Parameters: []tool.Parameter{
			{Name: "from_address", Type: "string", Description: "Адрес начала маршрута", Required: true},
			{Name: "to_address", Type: "string", Description: "Адрес конца маршрута", Required: true},
			{Name: "modes", Type: "array", Description: "Режимы транспорта (walking, car, bus). По умолчанию все."},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			from, err := stringArg(args, "from_address")
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			to, err := stringArg(args, "to_address")
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			modes := modesArg(args, "modes")

			info, err := routes.RouteByAddresses(ctx, from, to, modes)
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			return tool.OK(map[string]any{
				"from_address":         info.FromAddress,
				"to_address":           info.ToAddress,
				"distance_km_straight": info.DistanceKmStraight,
				"modes":                info.Modes,
			}).Encode(), nil
		},
	}
}

func searchWebTool(searcher WebSearcher) *tool.Tool {
	return &tool.Tool{
		Name:        "search_web",
		Description: "Поиск информации в интернете.",
		Parameters: []tool.Parameter{
			{Name: "query", Type: "string", Description: "Поисковый запрос", Required: true},
			{Name: "max_results", Type: "number", Description: "Максимальное количество результатов"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			maxResults := 5
			if v, err := floatArg(args, "max_results"); err == nil && v > 0 {
				maxResults = int(v)
			}

			pages, err := searcher.Search(ctx, query, maxResults)
			if err != nil {
				return tool.Fail(err).Encode(), nil
			}
			results := make([]map[string]any, 0, len(pages))
			for _, p := range pages {
				results = append(results, map[string]any{
					"url":          p.URL,
					"title":        p.Title,
					"text_preview": TextPreview(p.HTML),
				})
			}
			return tool.OK(map[string]any{
				"query":   query,
				"results": results,
				"count":   len(results),
			}).Encode(), nil
		},
	}
}

func weatherFields(w *Weather) map[string]any {
	return map[string]any{
		"description": w.Description,
		"temperature": w.Temperature,
		"feels_like":  w.FeelsLike,
		"humidity":    w.Humidity,
		"wind_speed":  w.WindSpeed,
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %s", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %s must be a non-empty string", name)
	}
	return s, nil
}

func floatArg(args map[string]any, name string) (float64, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %s", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("argument %s must be a number", name)
	}
}

func modesArg(args map[string]any, name string) []TransportMode {
	raw, ok := args[name].([]any)
	if !ok {
		return nil
	}
	modes := make([]TransportMode, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			modes = append(modes, TransportMode(s))
		}
	}
	return modes
}
