package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/i474232898/weather-history/internal/common"
	"github.com/i474232898/weather-history/internal/config"
	"github.com/i474232898/weather-history/internal/csvstore"
	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

func main() {
	cfg, err := config.LoadCollect()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	openWeather := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)

	// Google geocoding replaces OpenWeather's when a key is configured.
	var geocoder weather.Geocoder = openWeather
	if cfg.GoogleAPIKey != "" {
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleAPIKey)
	}

	confirm := common.PromptOverwrite(os.Stdin, os.Stdout)
	service := weather.NewService(geocoder, openWeather, confirm)

	sum, err := service.Collect(context.Background(), cfg.Plan(), csvstore.New(cfg.OutputFile))
	if errors.Is(err, weather.ErrCancelled) {
		fmt.Println("Operation cancelled.")
		return
	}
	if err != nil {
		log.Fatalf("collection failed: %v", err)
	}

	fmt.Printf("Data collection complete. %d rows saved to %s\n", sum.Rows, cfg.OutputFile)
	if len(sum.SkippedCities) > 0 || sum.SkippedLookups > 0 {
		fmt.Printf("Skipped %d cities and %d lookups without data.\n", len(sum.SkippedCities), sum.SkippedLookups)
	}
}
