// Package config loads the swath service settings.
//
// Settings are layered, later layers winning:
//  1. Built-in defaults.
//  2. An optional YAML file (input / roi / output sections).
//  3. A .env file in the working directory, if present.
//  4. Environment variables.
//
// The merged result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

// DefaultArchiveURL is the root of the public ATCF b-deck archive.
const DefaultArchiveURL = "https://ftp.nhc.noaa.gov/atcf/archive"

// Config holds all service settings.
type Config struct {
	// Region of interest (min_lat, max_lat, min_lon, max_lon) and grid
	// resolution (lat, lon), in decimal degrees. Both are required.
	Region     []float64 `envconfig:"SWATH_ROI" validate:"len=4"`
	Resolution []float64 `envconfig:"SWATH_RESOLUTION" validate:"len=2"`

	// Storm selection: either a local track file or a full storm id.
	Basin       string `envconfig:"SWATH_BASIN" validate:"omitempty,len=2,alpha"`
	StormNumber int    `envconfig:"SWATH_STORM_NUMBER" validate:"gte=0,lte=99"`
	Year        int    `envconfig:"SWATH_YEAR" validate:"omitempty,gte=1851,lte=2200"`
	TrackFile   string `envconfig:"SWATH_TRACK_FILE"`

	ArchiveURL   string        `envconfig:"SWATH_ARCHIVE_URL" validate:"required,url"`
	FetchTimeout time.Duration `envconfig:"SWATH_FETCH_TIMEOUT" validate:"gt=0"`

	OutputDir   string        `envconfig:"SWATH_OUTPUT_DIR" validate:"required"`
	Workers     int           `envconfig:"SWATH_WORKERS" validate:"gte=0"`
	TaskTimeout time.Duration `envconfig:"SWATH_TASK_TIMEOUT" validate:"gt=0"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR"`
	LogLevel        string        `envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `ignored:"true"`

	KafkaBrokers []string `ignored:"true"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" validate:"required"`

	// Mapbox place lookup for the peak-wind location.
	MapboxToken     string        `envconfig:"MAPBOX_TOKEN"`
	MapboxEnabled   bool          `ignored:"true"`
	MapboxTimeout   time.Duration `envconfig:"MAPBOX_TIMEOUT" validate:"gt=0"`
	MapboxCacheSize int           `envconfig:"MAPBOX_CACHE_SIZE" validate:"gt=0"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrFile indicates the YAML configuration file could not be read.
	ErrFile ConfigErrorType = "FILE_FAILED"
	// ErrParsing indicates a value could not be parsed into its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the merged configuration is invalid.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError is returned by Load for every configuration failure.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func defaults() Config {
	return Config{
		ArchiveURL:      DefaultArchiveURL,
		FetchTimeout:    30 * time.Second,
		TaskTimeout:     30 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,
		KafkaTopic:      "storm-swaths",
		MapboxTimeout:   5 * time.Second,
		MapboxCacheSize: 1000,
	}
}

// Load builds the configuration. path names an optional YAML file; pass ""
// to rely on the environment alone.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	// A missing .env is not an error, and it never overrides variables that
	// are already set.
	_ = godotenv.Load()

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to read shutdown timeout", Err: err}
	}
	cfg.ShutdownTimeout = shutdownTimeout

	if brokers := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}

	cfg.Basin = strings.ToLower(cfg.Basin)
	cfg.OutputDir = expandHome(cfg.OutputDir)
	cfg.TrackFile = expandHome(cfg.TrackFile)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	v := validator.New()
	// Report fields by the variable that sets them.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
		return f.Name
	})

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return &ConfigError{Type: ErrValidation, Message: strings.Join(parts, "; "), Err: err}
		}
		return &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}

	if cfg.TrackFile == "" && (cfg.Basin == "" || cfg.StormNumber == 0 || cfg.Year == 0) {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "either SWATH_TRACK_FILE or SWATH_BASIN, SWATH_STORM_NUMBER and SWATH_YEAR must be set",
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return &ConfigError{Type: ErrValidation, Message: "MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set"}
	}
	return nil
}

// GridRegion returns the region of interest as a domain value.
func (c *Config) GridRegion() (domain.Region, error) {
	return domain.RegionFromSlice(c.Region)
}

// GridResolution returns the grid spacing as a domain value.
func (c *Config) GridResolution() (domain.Resolution, error) {
	return domain.ResolutionFromSlice(c.Resolution)
}

// Storm returns the configured storm id. It is zero when only a track file
// was given.
func (c *Config) Storm() domain.StormID {
	if c.Basin == "" {
		return domain.StormID{}
	}
	return domain.StormID{Basin: c.Basin, Number: c.StormNumber, Year: c.Year}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// fileConfig mirrors the YAML layout:
//
//	input:  {year, storm_number, basin, path}
//	roi:    {min_latitude, max_latitude, min_longitude, max_longitude}
//	output: {resolution: [lat, lon], netcdf_dir}
type fileConfig struct {
	Input struct {
		Year        int    `yaml:"year"`
		StormNumber int    `yaml:"storm_number"`
		Basin       string `yaml:"basin"`
		Path        string `yaml:"path"`
	} `yaml:"input"`
	ROI struct {
		MinLatitude  *float64 `yaml:"min_latitude"`
		MaxLatitude  *float64 `yaml:"max_latitude"`
		MinLongitude *float64 `yaml:"min_longitude"`
		MaxLongitude *float64 `yaml:"max_longitude"`
	} `yaml:"roi"`
	Output struct {
		Resolution []float64 `yaml:"resolution"`
		NetCDFDir  string    `yaml:"netcdf_dir"`
	} `yaml:"output"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return &ConfigError{Type: ErrFile, Message: "failed to read config file " + path, Err: err}
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return &ConfigError{Type: ErrParsing, Message: "failed to parse config file " + path, Err: err}
	}

	if fc.Input.Year != 0 {
		cfg.Year = fc.Input.Year
	}
	if fc.Input.StormNumber != 0 {
		cfg.StormNumber = fc.Input.StormNumber
	}
	if fc.Input.Basin != "" {
		cfg.Basin = fc.Input.Basin
	}
	if fc.Input.Path != "" {
		cfg.TrackFile = fc.Input.Path
	}

	roi := []*float64{fc.ROI.MinLatitude, fc.ROI.MaxLatitude, fc.ROI.MinLongitude, fc.ROI.MaxLongitude}
	set := 0
	for _, v := range roi {
		if v != nil {
			set++
		}
	}
	switch set {
	case 0:
	case len(roi):
		cfg.Region = []float64{*roi[0], *roi[1], *roi[2], *roi[3]}
	default:
		return &ConfigError{
			Type:    ErrParsing,
			Message: "roi needs min_latitude, max_latitude, min_longitude and max_longitude",
		}
	}

	if len(fc.Output.Resolution) > 0 {
		cfg.Resolution = fc.Output.Resolution
	}
	if fc.Output.NetCDFDir != "" {
		cfg.OutputDir = fc.Output.NetCDFDir
	}
	return nil
}
