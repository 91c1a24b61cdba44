package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Server struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

type Breaker struct {
	TimeInterval time.Duration `envconfig:"BREAKER_INTERVAL" default:"30s"`
	TimeTimeOut  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"10s"`
	RepeatNumber uint32        `envconfig:"BREAKER_REPEAT_NUM" default:"5"`
}

type Redis struct {
	Host   string `envconfig:"REDIS_HOST" default:"localhost"`
	Port   string `envconfig:"REDIS_PORT" default:"6379"`
	DbType int    `envconfig:"REDIS_DB" default:"0"`
}

// Cache holds the backend choice and the TTL of each cache namespace.
type Cache struct {
	Backend     string        `envconfig:"CACHE_BACKEND" default:"redis"`
	CityTTL     time.Duration `envconfig:"CACHE_TIME_OUT_CITY" default:"24h"`
	ForecastTTL time.Duration `envconfig:"CACHE_TIME_OUT_FORECAST" default:"1h"`
}

type Config struct {
	PlacesAPIURL string `envconfig:"PLACES_API_URL" default:"https://search.reservamos.mx/api/v2/places"`

	OpenWeatherMapAPIKey string `envconfig:"OPEN_WEATHER_MAP_API_KEY" required:"true"`
	OpenWeatherMapURL    string `envconfig:"OPEN_WEATHER_MAP_URL" default:"https://api.openweathermap.org/data/2.5/onecall"`

	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"5s"`

	Server  Server
	Breaker Breaker
	Redis   Redis
	Cache   Cache

	ServiceName  string `envconfig:"SERVICE_NAME" default:"city_forecast_api"`
	LogsPath     string `envconfig:"LOGS_PATH" default:"./log/city-forecast-api.log"`
	HTTPLogsPath string `envconfig:"HTTP_LOGS_PATH" default:"./log/upstream-http.log"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.CityTTL <= 0 || c.Cache.ForecastTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	return nil
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (c *Config) RedisAddress() string {
	return net.JoinHostPort(c.Redis.Host, c.Redis.Port)
}
