package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/weather-history/internal/weather"
)

const (
	openWeatherGeoURL         = "http://api.openweathermap.org/geo/1.0/direct"
	openWeatherTimemachineURL = "https://api.openweathermap.org/data/3.0/onecall/timemachine"
)

// OpenWeatherProvider implements weather.Geocoder and weather.Source against the
// OpenWeatherMap geocoding and One Call "timemachine" APIs.
type OpenWeatherProvider struct {
	name           string
	apiKey         string
	geoURL         string
	timemachineURL string
	httpCfg        HTTPClientConfig
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:           "openweathermap",
		apiKey:         apiKey,
		geoURL:         openWeatherGeoURL,
		timemachineURL: openWeatherTimemachineURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Breaker: newBreaker("openweather"),
		},
	}
}

// WithBaseURLs points the provider at other endpoints, e.g. a test server.
func (p *OpenWeatherProvider) WithBaseURLs(geoURL, timemachineURL string) *OpenWeatherProvider {
	p.geoURL = geoURL
	p.timemachineURL = timemachineURL
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Geocode returns the best match for city.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, city string) (weather.Location, error) {
	if p.apiKey == "" {
		return weather.Location{}, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	req, err := http.NewRequest(http.MethodGet, p.geoURL+"?"+values.Encode(), nil)
	if err != nil {
		return weather.Location{}, err
	}

	resp, err := doRequest(ctx, p.httpCfg, req)
	if err != nil {
		return weather.Location{}, err
	}
	defer resp.Body.Close()

	var payload []struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Location{}, fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(payload) == 0 {
		return weather.Location{}, weather.ErrNotFound
	}

	return weather.Location{
		City: city,
		Lat:  payload[0].Lat,
		Lon:  payload[0].Lon,
	}, nil
}

// Observation returns the first entry of the timemachine "data" array for loc at the given
// instant, truncated to whole seconds.
func (p *OpenWeatherProvider) Observation(ctx context.Context, loc weather.Location, at time.Time) ([]byte, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	values.Set("dt", strconv.FormatInt(at.Unix(), 10))
	values.Set("units", "metric")
	values.Set("appid", p.apiKey)

	req, err := http.NewRequest(http.MethodGet, p.timemachineURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := doRequest(ctx, p.httpCfg, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read timemachine response: %w", err)
	}

	obs, err := weather.ExtractObservation(body)
	if errors.Is(err, weather.ErrNoData) {
		return nil, fmt.Errorf("%w: %w", weather.ErrNotFound, err)
	}
	return obs, err
}
