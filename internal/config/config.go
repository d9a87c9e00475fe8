package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`
	Places   PlacesConfig   `yaml:"places" mapstructure:"places"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	Backfill BackfillConfig `yaml:"backfill" mapstructure:"backfill"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EventsConfig holds the events search API settings. BearerToken is a
// secret and is expected via EVENTSYNC_EVENTS_BEARER_TOKEN.
type EventsConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	BearerToken string  `yaml:"bearer_token" mapstructure:"bearer_token"`
	SearchHub   string  `yaml:"search_hub" mapstructure:"search_hub"`
	Pipeline    string  `yaml:"pipeline" mapstructure:"pipeline"`
	SortField   string  `yaml:"sort_field" mapstructure:"sort_field"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	BeginDate   string  `yaml:"begin_date" mapstructure:"begin_date"`
	RateRPS     float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// PlacesConfig holds the Places text-search API settings. APIKey is a
// secret and is expected via EVENTSYNC_PLACES_API_KEY.
type PlacesConfig struct {
	BaseURL    string       `yaml:"base_url" mapstructure:"base_url"`
	APIKey     string       `yaml:"api_key" mapstructure:"api_key"`
	RegionCode string       `yaml:"region_code" mapstructure:"region_code"`
	Bounds     BoundsConfig `yaml:"bounds" mapstructure:"bounds"`
	RateRPS    float64      `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// BoundsConfig is the rectangular region geocoding results are restricted to.
type BoundsConfig struct {
	Low  LatLngConfig `yaml:"low" mapstructure:"low"`
	High LatLngConfig `yaml:"high" mapstructure:"high"`
}

// LatLngConfig is a configurable latitude/longitude pair.
type LatLngConfig struct {
	Lat float64 `yaml:"lat" mapstructure:"lat"`
	Lng float64 `yaml:"lng" mapstructure:"lng"`
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ScheduleConfig configures the scheduled trigger.
type ScheduleConfig struct {
	Spec string `yaml:"spec" mapstructure:"spec"`
}

// BackfillConfig configures the geocode backfill command.
type BackfillConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EVENTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "events.db")
	v.SetDefault("events.base_url", "https://www.ualberta.ca/api/coveo/rest/search/v2?organizationId=universityofalbertaproductionk9rdz87w")
	v.SetDefault("events.search_hub", "events")
	v.SetDefault("events.pipeline", "ualberta-events")
	v.SetDefault("events.sort_field", "ua__event_start_datetime")
	v.SetDefault("events.page_size", 24)
	v.SetDefault("events.begin_date", "2025/01/01")
	v.SetDefault("events.rate_rps", 5)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.region_code", "CA")
	// Alberta bounding rectangle: southwest and northeast corners.
	v.SetDefault("places.bounds.low.lat", 49.002)
	v.SetDefault("places.bounds.low.lng", -120.002)
	v.SetDefault("places.bounds.high.lat", 60.002)
	v.SetDefault("places.bounds.high.lng", -109.998)
	v.SetDefault("places.rate_rps", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("schedule.spec", "0 2 * * *")
	v.SetDefault("backfill.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
