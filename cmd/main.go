package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pantrybook/internal/api"
	"pantrybook/internal/cache"
	"pantrybook/internal/config"
	"pantrybook/internal/loader"
	"pantrybook/internal/logging"
	"pantrybook/internal/metrics"
	"pantrybook/internal/repository"
	"pantrybook/internal/store"
	"pantrybook/internal/transport"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()
	logging.Init()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.LogLevel != "" {
		log.SetLevelFromString(cfg.LogLevel)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}

	// Pick the transport: remote HTTP store when configured, otherwise
	// the embedded SQLite store.
	remote, cleanup, err := initializeTransport(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	defer cleanup()

	// Wire the caching core
	recipeCache := cache.New(cfg.Cache.TTL)
	recipeLoader := loader.New(remote, recipeCache)
	repo := repository.New(remote, recipeCache, recipeLoader)

	metrics.Register(prometheus.DefaultRegisterer)
	recipeAPI := api.NewRecipeAPI(repo)

	// Start metrics server
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// Start API server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: recipeAPI.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("API server shutdown error: %v", err)
		}
	}()

	log.Infof("Starting API server on port %d", cfg.Server.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

func initializeTransport(cfg *config.Config) (transport.Transport, func(), error) {
	if cfg.Remote.BaseURL != "" {
		log.Infof("Using remote document store at %s", cfg.Remote.BaseURL)
		return transport.NewHTTPClient(cfg.Remote.BaseURL), func() {}, nil
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.SeedDir != "" {
		seeded, err := st.Seed(context.Background(), cfg.Database.SeedDir)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		if seeded > 0 {
			log.Infof("Seeded %d recipe documents from %s", seeded, cfg.Database.SeedDir)
		}
	}
	return st, func() { st.Close() }, nil
}

func startMetricsServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}
	metricsRouter := gin.Default()
	metricsRouter.GET(path, gin.WrapH(promhttp.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	log.Infof("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Errorf("Metrics server error: %v", err)
	}
}
