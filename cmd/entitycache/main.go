// Command entitycache runs the cache coordination layer: the durable metrics
// flusher and the admin HTTP surface over a redis or in-memory store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/entitycache/admin"
	"github.com/jonwraymond/entitycache/auth"
	"github.com/jonwraymond/entitycache/cache"
	"github.com/jonwraymond/entitycache/config"
	"github.com/jonwraymond/entitycache/health"
	"github.com/jonwraymond/entitycache/observe"
	"github.com/jonwraymond/entitycache/resilience"
	"github.com/jonwraymond/entitycache/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $CONFIG_PATH or ./config.yaml)")
	issueToken := flag.String("issue-token", "", "print an admin JWT for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", time.Hour, "lifetime of a token issued with -issue-token")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entitycache: %v\n", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken, *tokenTTL); err != nil {
			fmt.Fprintf(os.Stderr, "entitycache: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "entitycache: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(ctx, path)
	}
	return config.Load(ctx)
}

func printToken(cfg *config.Config, subject string, ttl time.Duration) error {
	if cfg.Admin.JWTSecret == "" {
		return auth.ErrEmptySecret
	}
	token, err := auth.SignToken([]byte(cfg.Admin.JWTSecret), cfg.Admin.JWTIssuer, subject, []string{auth.RoleAdmin}, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	logger := obs.Logger().With(observe.F("service", cfg.ServiceName))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "observer shutdown failed", observe.Err(err))
		}
	}()

	gw, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	inst, err := observe.InstrumentationFromObserver(obs)
	if err != nil {
		return fmt.Errorf("instrumentation: %w", err)
	}
	coord, err := cache.New(gw, cfg.CoordinatorConfig(),
		cache.WithLogger(logger),
		cache.WithInstrumentation(inst),
		cache.WithHealthChecker("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{})),
	)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	if err := coord.Collector().Recover(ctx); err != nil {
		logger.Warn(ctx, "metrics recovery failed", observe.Err(err))
	}

	authn, err := authenticators(cfg)
	if err != nil {
		return err
	}
	router, err := admin.NewRouter(admin.Config{
		Coordinator:    coord,
		Authenticator:  authn,
		Gatherer:       obs.Gatherer(),
		RateLimit:      cfg.Admin.RateLimit,
		AllowedOrigins: cfg.Admin.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("admin router: %w", err)
	}

	sup := newSupervisor(cfg.ServiceName, cfg.Admin.ShutdownTimeout, logger)
	sup.Add(coord.Collector())
	sup.Add(admin.NewServer(cfg.Admin.Addr, router, cfg.Admin.ShutdownTimeout))

	logger.Info(ctx, "entitycache started",
		observe.F("backend", cfg.Cache.Backend),
		observe.F("admin_addr", cfg.Admin.Addr),
		observe.F("entity_types", len(coord.Registry().Types())),
	)
	err = sup.Serve(ctx)
	logger.Info(context.WithoutCancel(ctx), "entitycache stopped")
	return err
}

// openStore builds the configured gateway behind the timeout and circuit
// breaker guard.
func openStore(cfg *config.Config, logger observe.Logger) (store.Gateway, func(), error) {
	var (
		gw      store.Gateway
		closeFn = func() {}
	)
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		gw = store.NewMemoryGateway()
	default:
		rg, err := store.DialRedis(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		gw = rg
		closeFn = func() {
			if err := rg.Close(); err != nil {
				logger.Warn(context.Background(), "redis close failed", observe.Err(err))
			}
		}
	}

	guardCfg := cfg.GuardConfig()
	guardCfg.OnStateChange = func(from, to resilience.State) {
		logger.Warn(context.Background(), "store circuit state changed",
			observe.F("guard", guardCfg.Name), observe.F("from", from.String()), observe.F("to", to.String()))
	}
	return store.Guarded(gw, resilience.NewGuard(guardCfg)), closeFn, nil
}

// authenticators chains the configured admin credentials. Config validation
// guarantees at least one is present.
func authenticators(cfg *config.Config) (auth.Authenticator, error) {
	var chain []auth.Authenticator
	if cfg.Admin.JWTSecret != "" {
		a, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret: []byte(cfg.Admin.JWTSecret),
			Issuer: cfg.Admin.JWTIssuer,
		})
		if err != nil {
			return nil, fmt.Errorf("jwt authenticator: %w", err)
		}
		chain = append(chain, a)
	}
	if cfg.Admin.APIKey != "" {
		a, err := auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{Key: cfg.Admin.APIKey})
		if err != nil {
			return nil, fmt.Errorf("api key authenticator: %w", err)
		}
		chain = append(chain, a)
	}
	return auth.NewChain(chain...), nil
}
