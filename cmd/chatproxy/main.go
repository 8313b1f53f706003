package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/api"
	"qtrestaurant/internal/backend"
	"qtrestaurant/internal/config"
	"qtrestaurant/internal/database"
	"qtrestaurant/internal/logging"
	"qtrestaurant/internal/models"
	"qtrestaurant/internal/models/providers"
	"qtrestaurant/internal/monitoring"
	"qtrestaurant/internal/proxy"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", -1, "Separate metrics server port, 0 to serve /metrics on the API port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort >= 0 {
		cfg.Server.MetricsPort = *metricsPort
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := logging.New(cfg.Log)

	provider, err := providers.New(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}

	prompt, err := loadPrompt(ctx, cfg.Prompt, log)
	if err != nil {
		log.Fatalf("Failed to load menu for prompt: %v", err)
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, &models.ChatExchange{})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	exchanges := database.NewExchangeStore(db)

	monitor := monitoring.NewMonitor()
	monitor.SetInfo("provider", provider.Name())
	monitor.SetInfo("model", cfg.LLM.Model)
	monitor.SetInfo("menu_dishes", len(prompt.Menu))
	monitor.SetInfo("database_driver", cfg.Database.Driver)
	metrics := monitoring.NewMetrics()

	svc, err := proxy.NewService(provider, prompt,
		proxy.WithTimeout(cfg.LLM.Timeout),
		proxy.WithRecorder(exchanges),
		proxy.WithObserver(monitor),
		proxy.WithObserver(metrics),
		proxy.WithLogger(log),
	)
	if err != nil {
		log.Fatalf("Failed to initialize chat proxy: %v", err)
	}

	chatAPI := api.NewChatAPI(svc, exchanges, monitor, metrics, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		AdminSecret: cfg.Admin.JWTSecret,
		Logger:      log,
	})

	var metricsServer *http.Server
	if cfg.Server.MetricsPort > 0 {
		metricsServer = startMetricsServer(cfg.Server.MetricsPort, metrics, log)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           chatAPI.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("API server shutdown error: %v", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Metrics server shutdown error: %v", err)
			}
		}

		cancel()
	}()

	log.WithFields(logrus.Fields{
		"port":     cfg.Server.Port,
		"provider": provider.Name(),
		"database": cfg.Database.Driver,
	}).Info("Starting chat proxy")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

// loadPrompt replaces the configured menu with the backend's when
// menu_url is set; it points at the backend's GET /menu.
func loadPrompt(ctx context.Context, prompt proxy.PromptConfig, log logrus.FieldLogger) (proxy.PromptConfig, error) {
	if prompt.MenuURL == "" {
		return prompt, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := backend.NewClient(strings.TrimSuffix(strings.TrimRight(prompt.MenuURL, "/"), "/menu"), backend.WithLogger(log))
	items, err := client.Menu(fetchCtx)
	if err != nil {
		return prompt, err
	}
	prompt.Menu = proxy.MenuEntriesFrom(items)
	log.WithField("dishes", len(prompt.Menu)).Info("Loaded menu for prompt")
	return prompt, prompt.Validate()
}

func startMetricsServer(port int, metrics *monitoring.Metrics, log logrus.FieldLogger) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET("/metrics", gin.WrapH(metrics.Handler()))

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting metrics server on port %d", port)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
	return metricsServer
}
