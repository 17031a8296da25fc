package tools

import (
	"context"
	"fmt"
	"math"
	"testing"
)

func TestHaversineDistanceSamePoint(t *testing.T) {
	p := GeoPoint{Lon: 37.62, Lat: 55.75}
	if d := HaversineDistanceM(p, p); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestHaversineDistanceOneDegreeLatitude(t *testing.T) {
	// One degree of latitude on a 6371 km sphere is ~111.19 km.
	a := GeoPoint{Lon: 37.62, Lat: 55.0}
	b := GeoPoint{Lon: 37.62, Lat: 56.0}
	d := HaversineDistanceM(a, b)
	if math.Abs(d-111195) > 50 {
		t.Errorf("one degree of latitude = %f m, want ~111195", d)
	}
}

func TestHaversineDistanceMoscowSPb(t *testing.T) {
	moscow := GeoPoint{Lon: 37.6173, Lat: 55.7558}
	spb := GeoPoint{Lon: 30.3351, Lat: 59.9343}
	d := HaversineDistanceM(moscow, spb)
	if d < 620000 || d > 650000 {
		t.Errorf("Moscow-SPb = %f m, want ~634 km", d)
	}
}

func TestEstimateRouteWalkingMath(t *testing.T) {
	e := NewRouteEstimator()
	// ~1 km straight along a meridian.
	start := GeoPoint{Lon: 37.62, Lat: 55.7500}
	end := GeoPoint{Lon: 37.62, Lat: 55.758994}

	est, err := e.EstimateRoute(start, end, []TransportMode{ModeWalking})
	if err != nil {
		t.Fatalf("EstimateRoute failed: %v", err)
	}

	walking, ok := est.Modes[ModeWalking]
	if !ok {
		t.Fatalf("no walking estimate: %+v", est.Modes)
	}
	wantDistance := est.DistanceMStraight * 1.75
	if math.Abs(walking.DistanceM-wantDistance) > 0.001 {
		t.Errorf("walking distance = %f, want straight*1.75 = %f", walking.DistanceM, wantDistance)
	}
	wantMinutes := walking.DistanceKm / 5.0 * 60.0
	if math.Abs(walking.DurationMin-wantMinutes) > 0.001 {
		t.Errorf("walking duration = %f min, want %f", walking.DurationMin, wantMinutes)
	}
	if walking.SpeedKmh != 5.0 || walking.RoadCoefficient != 1.75 {
		t.Errorf("walking parameters drifted: %+v", walking)
	}
}

func TestEstimateRouteDefaultModes(t *testing.T) {
	e := NewRouteEstimator()
	est, err := e.EstimateRoute(GeoPoint{Lon: 37.62, Lat: 55.75}, GeoPoint{Lon: 37.70, Lat: 55.80}, nil)
	if err != nil {
		t.Fatalf("EstimateRoute failed: %v", err)
	}
	for _, mode := range DefaultModes {
		if _, ok := est.Modes[mode]; !ok {
			t.Errorf("missing default mode %s", mode)
		}
	}

	// The car is faster than the bus, the bus faster than walking.
	if !(est.Modes[ModeCar].DurationMin < est.Modes[ModeBus].DurationMin) {
		t.Errorf("car should beat bus: %+v", est.Modes)
	}
	if !(est.Modes[ModeBus].DurationMin < est.Modes[ModeWalking].DurationMin) {
		t.Errorf("bus should beat walking: %+v", est.Modes)
	}
}

func TestEstimateRouteUnknownMode(t *testing.T) {
	e := NewRouteEstimator()
	_, err := e.EstimateRoute(GeoPoint{}, GeoPoint{Lat: 1}, []TransportMode{"teleport"})
	if err == nil {
		t.Errorf("unknown mode must fail")
	}
}

// stubGeocoder resolves from a fixed table; unknown addresses yield nil.
type stubGeocoder struct {
	points map[string]GeoPoint
}

func (g *stubGeocoder) AddressToGeoPoint(_ context.Context, address string) (*GeoPoint, error) {
	p, ok := g.points[address]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func TestRouteByAddresses(t *testing.T) {
	svc := NewRouteService(&stubGeocoder{points: map[string]GeoPoint{
		"Красная площадь": {Lon: 37.6208, Lat: 55.7539},
		"ВДНХ":            {Lon: 37.6393, Lat: 55.8294},
	}})

	info, err := svc.RouteByAddresses(context.Background(), "Красная площадь", "ВДНХ", nil)
	if err != nil {
		t.Fatalf("RouteByAddresses failed: %v", err)
	}
	if info.FromAddress != "Красная площадь" || info.ToAddress != "ВДНХ" {
		t.Errorf("addresses not carried: %+v", info)
	}
	if info.DistanceKmStraight < 8 || info.DistanceKmStraight > 9 {
		t.Errorf("straight distance = %f km, want ~8.5", info.DistanceKmStraight)
	}
	if len(info.Modes) != len(DefaultModes) {
		t.Errorf("modes = %v", info.Modes)
	}
}

func TestRouteByAddressesUnresolved(t *testing.T) {
	svc := NewRouteService(&stubGeocoder{points: map[string]GeoPoint{
		"Красная площадь": {Lon: 37.6208, Lat: 55.7539},
	}})

	_, err := svc.RouteByAddresses(context.Background(), "Красная площадь", "несуществующий адрес", nil)
	if err == nil {
		t.Errorf("unresolved address must fail")
	}
}

func TestRouteByAddressesGeocoderError(t *testing.T) {
	svc := NewRouteService(failingGeocoder{})
	_, err := svc.RouteByAddresses(context.Background(), "a", "b", nil)
	if err == nil {
		t.Errorf("geocoder errors must propagate")
	}
}

type failingGeocoder struct{}

func (failingGeocoder) AddressToGeoPoint(context.Context, string) (*GeoPoint, error) {
	return nil, fmt.Errorf("geocoder down")
}
