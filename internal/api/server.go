package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/database"
	"qtrestaurant/internal/logging"
	"qtrestaurant/internal/monitoring"
	"qtrestaurant/internal/proxy"
)

// ChatAPI represents the chat proxy's HTTP surface
type ChatAPI struct {
	Router    *gin.Engine
	Proxy     *proxy.Service
	Exchanges *database.ExchangeStore
	Monitor   *monitoring.Monitor
	Metrics   *monitoring.Metrics

	adminSecret []byte
	log         logrus.FieldLogger
}

// Options configures NewChatAPI.
type Options struct {
	CORSOrigins []string
	AdminSecret string
	Logger      logrus.FieldLogger
}

// NewChatAPI creates the router over a ready proxy service. Exchanges,
// monitor and metrics may be nil.
func NewChatAPI(svc *proxy.Service, exchanges *database.ExchangeStore, monitor *monitoring.Monitor, metrics *monitoring.Metrics, opts Options) *ChatAPI {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), logging.Middleware(log), corsMiddleware(opts.CORSOrigins))

	api := &ChatAPI{
		Router:      router,
		Proxy:       svc,
		Exchanges:   exchanges,
		Monitor:     monitor,
		Metrics:     metrics,
		adminSecret: []byte(opts.AdminSecret),
		log:         log.WithField("component", "api"),
	}

	api.setupRoutes()
	return api
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// setupRoutes configures all API endpoints
func (a *ChatAPI) setupRoutes() {
	// Health check
	a.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "QT chat proxy is running"})
	})

	a.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
	})
	a.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	if a.Metrics != nil {
		a.Router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	}

	api := a.Router.Group("/api")
	{
		api.POST("/chat", a.Chat)
		api.GET("/chat/ws", a.ChatWebSocket)
		api.GET("/metrics", a.GetMetrics)

		admin := api.Group("/admin", a.requireAdmin)
		admin.GET("/exchanges", a.ListExchanges)
		admin.POST("/metrics/reset", a.ResetMetrics)
	}
}

// GetMetrics returns the in-process monitor snapshot.
func (a *ChatAPI) GetMetrics(c *gin.Context) {
	if a.Monitor == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, a.Monitor.Snapshot())
}
