package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-history/internal/weather"
)

const (
	defaultCities    = "Shenzhen,Shanghai,Guangzhou,Beijing"
	defaultDateRange = "20230101-20230331"
	defaultOutput    = "weather_data.csv"
	defaultPattern   = "weather_data_*.csv"
	defaultAggregate = "weather_data_aggregated.csv"
)

var validate = validator.New()

// CollectConfig configures a collection run.
type CollectConfig struct {
	OpenWeatherAPIKey string `validate:"required"`
	GoogleAPIKey      string

	Cities []string  `validate:"min=1,dive,required"`
	Start  time.Time `validate:"required"`
	End    time.Time `validate:"required,gtefield=Start"`

	OutputFile   string        `validate:"required"`
	RequestDelay time.Duration `validate:"gte=0"`
	HTTPTimeout  time.Duration `validate:"gt=0"`
}

// Plan converts the configuration into a weather.Plan.
func (c *CollectConfig) Plan() weather.Plan {
	return weather.Plan{
		Cities: c.Cities,
		Start:  c.Start,
		End:    c.End,
		Output: c.OutputFile,
		Delay:  c.RequestDelay,
	}
}

// MergeConfig configures a merge run.
type MergeConfig struct {
	Dir        string `validate:"required"`
	Pattern    string `validate:"required"`
	OutputFile string `validate:"required"`
}

// ServeConfig configures the read-only HTTP API over the aggregate file.
type ServeConfig struct {
	Port           string        `validate:"required,numeric"`
	InputFile      string        `validate:"required"`
	ReloadInterval time.Duration `validate:"gte=1m"`
	SQLitePath     string
}

// loadEnv reads a .env file when there is one.
func loadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
}

// LoadCollect reads the collection configuration from the environment with sensible defaults.
func LoadCollect() (*CollectConfig, error) {
	loadEnv()
	cfg := &CollectConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	cfg.Cities = splitList(getenvDefault("WEATHER_CITIES", defaultCities))

	start, end, err := ParseDateRange(getenvDefault("WEATHER_DATE_RANGE", defaultDateRange))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_DATE_RANGE: %w", err)
	}
	cfg.Start, cfg.End = start, end

	cfg.OutputFile = getenvDefault("WEATHER_OUTPUT_FILE", defaultOutput)

	if cfg.RequestDelay, err = getenvDuration("REQUEST_DELAY", "1s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid collect config: %w", err)
	}
	return cfg, nil
}

// LoadMerge reads the merge configuration from the environment.
func LoadMerge() (*MergeConfig, error) {
	loadEnv()
	cfg := &MergeConfig{
		Dir:        getenvDefault("MERGE_DIR", "."),
		Pattern:    getenvDefault("MERGE_PATTERN", defaultPattern),
		OutputFile: getenvDefault("MERGE_OUTPUT_FILE", defaultAggregate),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid merge config: %w", err)
	}
	return cfg, nil
}

// LoadServe reads the HTTP API configuration from the environment.
func LoadServe() (*ServeConfig, error) {
	loadEnv()
	cfg := &ServeConfig{
		Port:       getenvDefault("PORT", "8080"),
		InputFile:  getenvDefault("SERVE_INPUT_FILE", defaultAggregate),
		SQLitePath: os.Getenv("SERVE_SQLITE_PATH"),
	}

	var err error
	if cfg.ReloadInterval, err = getenvDuration("SERVE_RELOAD_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid serve config: %w", err)
	}
	return cfg, nil
}

// ParseDateRange parses "YYYYMMDD-YYYYMMDD" into its two UTC days.
func ParseDateRange(s string) (time.Time, time.Time, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%q is not of the form YYYYMMDD-YYYYMMDD", s)
	}
	start, err := time.Parse(weather.DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start date: %w", err)
	}
	end, err := time.Parse(weather.DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", to, from)
	}
	return start, end, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
