package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-history/internal/weather"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenWeatherProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenWeatherProvider(srv.Client(), "test-key").WithBaseURLs(srv.URL+"/geo", srv.URL+"/timemachine")
}

func TestGeocode(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/geo" || q.Get("limit") != "1" || q.Get("appid") != "test-key" {
			t.Errorf("unexpected request %s", r.URL)
		}
		switch q.Get("q") {
		case "Shenzhen":
			w.Write([]byte(`[{"name":"Shenzhen","lat":22.5,"lon":114.0,"country":"CN"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	loc, err := p.Geocode(context.Background(), "Shenzhen")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if loc.City != "Shenzhen" || loc.Lat != 22.5 || loc.Lon != 114.0 {
		t.Fatalf("unexpected location %+v", loc)
	}

	if _, err := p.Geocode(context.Background(), "Atlantis"); !errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestObservation(t *testing.T) {
	at := time.Date(2023, 1, 1, 6, 0, 0, 0, time.UTC)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("dt") != "1672552800" || q.Get("units") != "metric" || q.Get("lat") != "22.5" || q.Get("lon") != "114" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"lat":22.5,"lon":114,"data":[{"dt":1672552800,"temp":20,"weather":[{"main":"Clear"}]}]}`))
	})

	obs, err := p.Observation(context.Background(), weather.Location{City: "Shenzhen", Lat: 22.5, Lon: 114.0}, at)
	if err != nil {
		t.Fatalf("Observation: %v", err)
	}
	if string(obs) != `{"dt":1672552800,"temp":20,"weather":[{"main":"Clear"}]}` {
		t.Fatalf("unexpected observation %s", obs)
	}
}

func TestObservationAbsence(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no data key", http.StatusOK, `{"lat":1,"lon":2}`},
		{"empty data", http.StatusOK, `{"data":[]}`},
		{"bad request", http.StatusBadRequest, `{"cod":"400","message":"requested time is out of allowed range"}`},
		{"server error", http.StatusBadGateway, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := p.Observation(context.Background(), weather.Location{City: "X"}, time.Now())
			if !errors.Is(err, weather.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestObservationUnauthorizedIsFatal(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := p.Observation(context.Background(), weather.Location{City: "X"}, time.Now())
	if err == nil || errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected a fatal error, got %v", err)
	}
}

func TestCircuitOpensAfterRepeatedServerErrors(t *testing.T) {
	var hits int
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		if _, err := p.Observation(context.Background(), weather.Location{}, time.Now()); !errors.Is(err, weather.ErrNotFound) {
			t.Fatalf("call %d: expected ErrNotFound, got %v", i, err)
		}
	}
	_, err := p.Observation(context.Background(), weather.Location{}, time.Now())
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if hits != 5 {
		t.Fatalf("expected exactly one attempt per call, server saw %d", hits)
	}
}

func TestMissingAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	if _, err := p.Geocode(context.Background(), "Shenzhen"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestGoogleGeocoder(t *testing.T) {
	g := &GoogleGeocoder{geocode: func(a geocoder.Address) (geocoder.Location, error) {
		if a.City == "Beijing" {
			return geocoder.Location{Latitude: 39.9, Longitude: 116.4}, nil
		}
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	}}

	loc, err := g.Geocode(context.Background(), "Beijing")
	if err != nil || loc.Lat != 39.9 || loc.Lon != 116.4 || loc.City != "Beijing" {
		t.Fatalf("unexpected result %+v, %v", loc, err)
	}
	if _, err := g.Geocode(context.Background(), "Atlantis"); !errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
