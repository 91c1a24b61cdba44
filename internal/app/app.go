package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerfiles "github.com/swaggo/files"
	swagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Nazarious-ucu/city-forecast-api/docs"
	"github.com/Nazarious-ucu/city-forecast-api/internal/config"
	forecastHandler "github.com/Nazarious-ucu/city-forecast-api/internal/handlers/forecast"
	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/cache"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/cities"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/forecast"
	loggerT "github.com/Nazarious-ucu/city-forecast-api/internal/services/logger"
	metricsSvc "github.com/Nazarious-ucu/city-forecast-api/internal/services/metrics"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/places"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/weather"
	fLogger "github.com/Nazarious-ucu/city-forecast-api/pkg/logger"
)

// ServiceContainer holds initialized dependencies for the HTTP server.
type ServiceContainer struct {
	Router *gin.Engine
	Srv    *http.Server
	Redis  *redis.Client

	fileLogger *zap.Logger
}

// App ties together config, logger, and metrics for startup/shutdown.
type App struct {
	cfg config.Config
	l   zerolog.Logger
	reg *prometheus.Registry
	m   *metricsSvc.Metrics
}

// New prepares a new App with its own metrics registry.
func New(cfg config.Config, logger zerolog.Logger) *App {
	reg := prometheus.NewRegistry()
	return &App{
		cfg: cfg,
		l:   logger,
		reg: reg,
		m:   metricsSvc.NewMetrics(cfg.ServiceName, reg),
	}
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	srvContainer := a.Init()

	a.l.Info().
		Str("address", a.cfg.ServerAddress()).
		Msg("starting forecast service")

	serveErr := make(chan error, 1)
	go func() {
		if err := srvContainer.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		a.l.Info().Msg("shutdown signal received, stopping forecast service")
	case err := <-serveErr:
		if err != nil {
			a.l.Error().Err(err).Msg("HTTP server failed")
			_ = a.Shutdown(srvContainer)
			return err
		}
	}

	if err := a.Shutdown(srvContainer); err != nil {
		a.l.Error().Err(err).Msg("failed to shutdown application")
		return err
	}
	a.l.Info().Msg("application shutdown successfully")
	return nil
}

// Shutdown stops the HTTP server, closes Redis and syncs the upstream log.
func (a *App) Shutdown(srvContainer ServiceContainer) error {
	a.l.Info().Msg("stopping forecast service…")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srvContainer.Srv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	} else {
		a.l.Info().Msg("HTTP server stopped")
	}

	if srvContainer.Redis != nil {
		if err := srvContainer.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := srvContainer.fileLogger.Sync(); err != nil {
		a.l.Warn().Err(err).Msg("failed to sync file logger")
	}

	a.l.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

// Init wires clients, caches, services and routes without starting the server.
func (a *App) Init() ServiceContainer {
	a.l.Info().
		Str("cache_backend", a.cfg.Cache.Backend).
		Dur("city_ttl", a.cfg.Cache.CityTTL).
		Dur("forecast_ttl", a.cfg.Cache.ForecastTTL).
		Str("places_url", a.cfg.PlacesAPIURL).
		Str("weather_url", a.cfg.OpenWeatherMapURL).
		Msg("initializing forecast service")

	fileLogger, err := fLogger.NewFileLogger(a.cfg.HTTPLogsPath)
	if err != nil {
		a.l.Error().Err(err).Msg("failed to create file logger, upstream traffic will not be logged")
		fileLogger = zap.NewNop()
	}

	httpLogClient := &http.Client{
		Transport: loggerT.NewRoundTripper(fileLogger),
		Timeout:   a.cfg.HTTPClientTimeout,
	}

	placesClient := places.NewClientReservamos(a.cfg.PlacesAPIURL, httpLogClient, a.l)

	openWeather := weather.NewBreakerClient("OpenWeather",
		weather.BreakerConfig{
			TimeInterval:  a.cfg.Breaker.TimeInterval,
			TimeTimeOut:   a.cfg.Breaker.TimeTimeOut,
			RepeatNumber:  a.cfg.Breaker.RepeatNumber,
			OnStateChange: a.m.SetBreakerState,
		},
		weather.NewClientOpenWeatherMap(a.cfg.OpenWeatherMapAPIKey, a.cfg.OpenWeatherMapURL, httpLogClient, a.l),
	)

	cityStore, forecastStore, redisClient := a.newStores()

	cityService := cities.NewService(placesClient, cityStore, a.cfg.Cache.CityTTL, a.l)
	forecastService := forecast.NewService(openWeather, forecastStore, a.cfg.Cache.ForecastTTL, a.l)

	router := a.newRouter(
		forecastHandler.NewHandler(cityService, forecastService, a.cfg.Server.RequestTimeout, a.l),
		redisClient,
	)

	httpServer := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: a.cfg.Server.ReadTimeout,
	}

	return ServiceContainer{
		Router:     router,
		Srv:        httpServer,
		Redis:      redisClient,
		fileLogger: fileLogger,
	}
}

// newStores builds the two cache namespaces on the configured backend.
func (a *App) newStores() (cache.Store[[]models.City], cache.Store[[]models.ForecastDay], *redis.Client) {
	collector := metricsSvc.NewPromCollector(a.cfg.ServiceName, a.reg)

	var (
		cityStore     cache.Store[[]models.City]
		forecastStore cache.Store[[]models.ForecastDay]
		redisClient   *redis.Client
	)

	switch a.cfg.Cache.Backend {
	case config.CacheBackendMemory:
		backend := cache.NewMemoryBackend()
		cityStore = cache.NewMemoryClient[[]models.City](backend)
		forecastStore = cache.NewMemoryClient[[]models.ForecastDay](backend)
	default:
		redisClient = newRedisConnection(a.cfg.RedisAddress(), a.cfg.Redis.DbType)
		cityStore = cache.NewRedisClient[[]models.City](redisClient, a.l)
		forecastStore = cache.NewRedisClient[[]models.ForecastDay](redisClient, a.l)
	}

	return cache.NewMetricsDecorator(cityStore, collector, "city"),
		cache.NewMetricsDecorator(forecastStore, collector, "forecast"),
		redisClient
}

func (a *App) newRouter(h *forecastHandler.Handler, redisClient *redis.Client) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a.m.HTTPMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{})))
	router.GET("/healthz", healthHandler(redisClient, a.l))
	router.GET("/swagger/*any", swagger.WrapHandler(swaggerfiles.Handler))

	api := router.Group("/api")
	{
		api.GET("/forecast", a.m.ForecastMiddleware(), h.GetForecast)
	}

	return router
}

func healthHandler(redisClient *redis.Client, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				logger.Error().
					Ctx(c.Request.Context()).
					Err(err).
					Msg("health check: redis ping failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func newRedisConnection(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, DB: db})
}
