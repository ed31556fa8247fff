package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-history/internal/common"
	"github.com/i474232898/weather-history/internal/weather"
)

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
type GoogleGeocoder struct {
	geocode func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogleGeocoder configures the geocoder package with apiKey. The key is process-wide.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{geocode: geocoder.Geocoding}
}

// Geocode returns the best match for city. The Google client does not take a context.
func (g *GoogleGeocoder) Geocode(_ context.Context, city string) (weather.Location, error) {
	loc, err := g.geocode(geocoder.Address{City: city})
	if err != nil {
		if common.HasAny(strings.ToLower(err.Error()), "zero_results", "no results", "empty") {
			return weather.Location{}, weather.ErrNotFound
		}
		return weather.Location{}, fmt.Errorf("google geocoding: %w", err)
	}
	return weather.Location{
		City: city,
		Lat:  loc.Latitude,
		Lon:  loc.Longitude,
	}, nil
}
