package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const yandexGeocoderURL = "https://geocode-maps.yandex.ru/1.x"

// GeoPoint is a (lon, lat) pair in degrees, WGS84.
type GeoPoint struct {
	Lon float64
	Lat float64
}

// HaversineDistanceM returns the great-circle distance between two points in
// meters.
func HaversineDistanceM(p1, p2 GeoPoint) float64 {
	lon1, lat1 := radians(p1.Lon), radians(p1.Lat)
	lon2, lat2 := radians(p2.Lon), radians(p2.Lat)

	dlon := lon2 - lon1
	dlat := lat2 - lat1

	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	const earthRadiusM = 6371000
	return earthRadiusM * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Geocoder resolves free-form addresses to coordinates.
type Geocoder interface {
	AddressToGeoPoint(ctx context.Context, address string) (*GeoPoint, error)
}

// YandexGeocoder resolves addresses via the Yandex Geocoder HTTP API.
type YandexGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewYandexGeocoder creates a geocoder with the given API key.
func NewYandexGeocoder(apiKey string) (*YandexGeocoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("yandex geocoder api key is empty")
	}
	return &YandexGeocoder{
		apiKey:  apiKey,
		baseURL: yandexGeocoderURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NewYandexGeocoderFromEnv reads YANDEX_GEOCODER_API_KEY.
func NewYandexGeocoderFromEnv() (*YandexGeocoder, error) {
	key := os.Getenv("YANDEX_GEOCODER_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("YANDEX_GEOCODER_API_KEY is not set")
	}
	return NewYandexGeocoder(key)
}

// AddressToGeoPoint resolves an address to coordinates. Returns nil without an
// error when the geocoder finds nothing.
func (g *YandexGeocoder) AddressToGeoPoint(ctx context.Context, address string) (*GeoPoint, error) {
	q := url.Values{}
	q.Set("apikey", g.apiKey)
	q.Set("geocode", address)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload struct {
		Response struct {
			GeoObjectCollection struct {
				FeatureMember []struct {
					GeoObject struct {
						Point struct {
							Pos string `json:"pos"`
						} `json:"Point"`
					} `json:"GeoObject"`
				} `json:"featureMember"`
			} `json:"GeoObjectCollection"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	members := payload.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return nil, nil
	}

	parts := strings.Fields(members[0].GeoObject.Point.Pos)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed geocoder point: %q", members[0].GeoObject.Point.Pos)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed latitude: %w", err)
	}

	return &GeoPoint{Lon: lon, Lat: lat}, nil
}

// TransportMode is a supported way of getting between two points.
type TransportMode string

const (
	ModeWalking TransportMode = "walking"
	ModeCar     TransportMode = "car"
	ModeBus     TransportMode = "bus"
)

// DefaultModes is the mode set used when a caller does not pick any.
var DefaultModes = []TransportMode{ModeWalking, ModeCar, ModeBus}

// ModeEstimate is the travel estimate for a single transport mode.
type ModeEstimate struct {
	DistanceM       float64 `json:"distance_m"`
	DistanceKm      float64 `json:"distance_km"`
	DurationH       float64 `json:"duration_h"`
	DurationMin     float64 `json:"duration_min"`
	SpeedKmh        float64 `json:"speed_kmh"`
	RoadCoefficient float64 `json:"road_coefficient"`
}

// RouteEstimate is a full routing estimate between two points.
type RouteEstimate struct {
	DistanceMStraight  float64                        `json:"distance_m_straight"`
	DistanceKmStraight float64                        `json:"distance_km_straight"`
	Modes              map[TransportMode]ModeEstimate `json:"modes"`
}

// RouteEstimator approximates routes without a real routing backend: straight
// line distance scaled by a per-mode road coefficient, divided by an average
// speed.
type RouteEstimator struct {
	speedsKmh        map[TransportMode]float64
	roadCoefficients map[TransportMode]float64
}

// NewRouteEstimator creates an estimator with city-average speeds.
func NewRouteEstimator() *RouteEstimator {
	return &RouteEstimator{
		speedsKmh: map[TransportMode]float64{
			ModeWalking: 5.0,
			ModeCar:     40.0,
			ModeBus:     25.0,
		},
		roadCoefficients: map[TransportMode]float64{
			ModeWalking: 1.75,
			ModeCar:     1.8,
			ModeBus:     2.0,
		},
	}
}

// EstimateRoute computes travel estimates for the requested modes.
func (e *RouteEstimator) EstimateRoute(start, end GeoPoint, modes []TransportMode) (*RouteEstimate, error) {
	if len(modes) == 0 {
		modes = DefaultModes
	}

	straightM := HaversineDistanceM(start, end)
	est := &RouteEstimate{
		DistanceMStraight:  straightM,
		DistanceKmStraight: straightM / 1000.0,
		Modes:              make(map[TransportMode]ModeEstimate, len(modes)),
	}

	for _, mode := range modes {
		speed, ok := e.speedsKmh[mode]
		if !ok {
			return nil, fmt.Errorf("unknown transport mode: %s", mode)
		}
		coeff := e.roadCoefficients[mode]

		distanceM := straightM * coeff
		distanceKm := distanceM / 1000.0
		durationH := distanceKm / speed

		est.Modes[mode] = ModeEstimate{
			DistanceM:       distanceM,
			DistanceKm:      distanceKm,
			DurationH:       durationH,
			DurationMin:     durationH * 60.0,
			SpeedKmh:        speed,
			RoadCoefficient: coeff,
		}
	}
	return est, nil
}

// RouteService geocodes two addresses and estimates the route between them.
type RouteService struct {
	geocoder  Geocoder
	estimator *RouteEstimator
}

// NewRouteService wires a geocoder with the default estimator.
func NewRouteService(geocoder Geocoder) *RouteService {
	return &RouteService{
		geocoder:  geocoder,
		estimator: NewRouteEstimator(),
	}
}

// RouteInfo is a route estimate annotated with the resolved endpoints.
type RouteInfo struct {
	FromAddress string    `json:"from_address"`
	ToAddress   string    `json:"to_address"`
	FromPoint   GeoPoint  `json:"from_point"`
	ToPoint     GeoPoint  `json:"to_point"`
	*RouteEstimate
}

// RouteByAddresses geocodes both addresses and estimates the route for the
// requested modes.
func (s *RouteService) RouteByAddresses(ctx context.Context, fromAddress, toAddress string, modes []TransportMode) (*RouteInfo, error) {
	start, err := s.geocoder.AddressToGeoPoint(ctx, fromAddress)
	if err != nil {
		return nil, err
	}
	end, err := s.geocoder.AddressToGeoPoint(ctx, toAddress)
	if err != nil {
		return nil, err
	}
	if start == nil || end == nil {
		return nil, fmt.Errorf("failed to resolve coordinates for one of the addresses")
	}

	est, err := s.estimator.EstimateRoute(*start, *end, modes)
	if err != nil {
		return nil, err
	}

	return &RouteInfo{
		FromAddress:   fromAddress,
		ToAddress:     toAddress,
		FromPoint:     *start,
		ToPoint:       *end,
		RouteEstimate: est,
	}, nil
}
