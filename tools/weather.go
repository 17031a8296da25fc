package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Weather is the current weather at a point.
type Weather struct {
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// WeatherClient fetches current weather from OpenWeather.
type WeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherClient creates a client with the given API key.
func NewWeatherClient(apiKey string) (*WeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openweather api key is empty")
	}
	return &WeatherClient{
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NewWeatherClientFromEnv reads OPENWEATHER_API_KEY.
func NewWeatherClientFromEnv() (*WeatherClient, error) {
	key := os.Getenv("OPENWEATHER_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is not set")
	}
	return NewWeatherClient(key)
}

// GetWeather returns current weather for a point in metric units.
func (c *WeatherClient) GetWeather(ctx context.Context, lat, lon float64) (*Weather, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openweather returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode openweather response: %w", err)
	}
	if len(payload.Weather) == 0 {
		return nil, fmt.Errorf("malformed openweather response: missing weather field")
	}

	return &Weather{
		Description: payload.Weather[0].Description,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
