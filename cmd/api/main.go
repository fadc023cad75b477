package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/pizzeria-api/internal/cart"
	"github.com/noah-isme/pizzeria-api/internal/catalog"
	"github.com/noah-isme/pizzeria-api/internal/checkout"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/config"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/db"
	"github.com/noah-isme/pizzeria-api/internal/health"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/obs"
	"github.com/noah-isme/pizzeria-api/internal/order"
	"github.com/noah-isme/pizzeria-api/internal/ratelimit"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
	"github.com/noah-isme/pizzeria-api/internal/resilience"
	"github.com/noah-isme/pizzeria-api/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pizzeria")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pizzeria-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.DBAutoMigrate {
		if err := db.Up(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pizzeria-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	// Fresh reads gate checkout and materialization; previews may use the cache.
	catalogStore, err := catalog.NewPostgresStore(catalog.StoreConfig{DB: pool, AllowInactive: cfg.CatalogAllowInactive})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog store")
	}
	freshLookup := catalog.GuardedLookup{
		Next: catalogStore,
		Breaker: resilience.NewBreaker(
			envInt("CATALOG_BREAKER_MIN_REQUESTS", 10),
			envFloat("CATALOG_BREAKER_FAILURE_RATIO", 0.5),
			envDurationMillis("CATALOG_BREAKER_OPEN_MS", 15000),
		).WithTarget("catalog").WithLogger(logger),
	}
	previewLookup := catalog.CachedLookup{Next: freshLookup, Cache: catalog.NewCache(redisClient, cfg.CatalogCacheTTL)}

	epsilon := money.Money(cfg.PriceEpsilonMinor)
	previewPricer := reprice.NewService(reprice.Config{Lookup: previewLookup, Epsilon: epsilon, Logger: logger})
	gatePricer := reprice.NewService(reprice.Config{Lookup: freshLookup, Epsilon: epsilon, Logger: logger})

	locker := lock.Locker{R: redisClient, RetryBackoff: 50 * time.Millisecond, MaxWait: cfg.CartLockTTL}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	cartSvc, err := cart.NewService(cart.Config{
		Store:    cart.RedisStore{R: redisClient, TTL: cfg.CartTTL},
		Locker:   locker,
		Pricer:   previewPricer,
		LockTTL:  cfg.CartLockTTL,
		TaxBps:   cfg.TaxRateBps,
		Currency: cfg.CurrencyCode,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise cart service")
	}

	orderStore := &order.PostgresStore{DB: pool}
	materializer, err := order.NewMaterializer(order.MaterializerConfig{
		Pricer:  gatePricer,
		Store:   orderStore,
		Locker:  locker,
		LockTTL: cfg.CartLockTTL,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise order materializer")
	}

	checkoutSvc, err := checkout.NewService(checkout.Config{
		Carts:        cartSvc,
		Locker:       locker,
		Materializer: materializer,
		Orders:       orderStore,
		LockTTL:      cfg.CartLockTTL,
		TaxBps:       cfg.TaxRateBps,
		Currency:     cfg.CurrencyCode,
		Epsilon:      epsilon,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout service")
	}

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Lookup: previewLookup})
	builderHandler := configurator.NewHandler(previewLookup)
	pricingHandler := reprice.NewHandler(previewPricer)
	cartHandler := &cart.Handler{Svc: cartSvc}
	orderHandler := &order.Handler{Materializer: materializer, Store: orderStore}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	limit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Config:  ratelimit.Config{Key: ratelimit.ByClientRoute, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.SpanRouteMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:                envBool("SECURE_HEADERS_ENABLE", true),
		EnableHSTS:            envBool("SECURE_HSTS_ENABLE", cfg.AppEnv == "production"),
		HSTSMaxAge:            envInt("SECURE_HSTS_MAX_AGE", 31536000),
		HSTSIncludeSubdomains: envBool("SECURE_HSTS_INCLUDE_SUBDOMAINS", false),
		NoStore:               true,
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("HTTP_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", cfg.AppEnv == "development")
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Probes: map[string]health.Probe{
			"db":      health.Postgres(pool),
			"redis":   health.Redis(redisClient),
			"catalog": health.Catalog(pool),
		},
		Timeout: envDurationMillis("HEALTH_READY_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/menu-items/{id}/customizations", catalogHandler.Customizations)
		v.Get("/specialties/{id}/configuration", builderHandler.SpecialtyConfiguration)

		v.Route("/pricing", func(p chi.Router) {
			p.Use(limit.Middleware)
			p.Post("/quote", pricingHandler.Quote)
			p.Post("/reprice", pricingHandler.Reprice)
		})

		v.Route("/carts", func(c chi.Router) {
			c.With(idem.Middleware).Post("/", cartHandler.Create)
			c.Get("/{cartId}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/{cartId}/lines", cartHandler.AddLine)
				g.Patch("/{cartId}/lines/{lineId}", cartHandler.UpdateLine)
				g.Delete("/{cartId}/lines/{lineId}", cartHandler.RemoveLine)
			})
		})

		v.With(idem.Middleware).Post("/checkout", checkoutHandler.Checkout)

		v.Get("/orders/{orderId}", orderHandler.Get)
		v.With(idem.Middleware).Post("/orders/{orderId}/lines", orderHandler.Materialize)
	})

	var handler http.Handler = r
	if tracingEnabled {
		handler = otelhttp.NewHandler(r, "http.server")
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, release := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer release()
	go func() {
		<-sigCtx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
