package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/layer-3/carbx"
	"github.com/layer-3/carbx/internal/metrics"
)

// RouterConfig holds the router dependencies besides the dashboard
type RouterConfig struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer // Defaults to the prometheus default gatherer
	AllowedOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(client carbx.Client, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(RequestLogger(cfg.Logger), Recovery(cfg.Logger), Metrics(cfg.Metrics))
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, requestIDHeader)
		corsConfig.ExposeHeaders = []string{requestIDHeader}
		corsConfig.AllowCredentials = true
		router.Use(cors.New(corsConfig))
	}

	// Create handlers
	handlers := NewDashboardHandlers(client)

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/wallet", handlers.Wallet)
		api.POST("/wallet/connect", handlers.ConnectWallet)
		api.POST("/wallet/disconnect", handlers.DisconnectWallet)

		api.GET("/session", handlers.Session)
		api.POST("/session/sign-in", handlers.SignIn)
		api.POST("/session/check", handlers.CheckSession)

		api.GET("/tokens", handlers.Tokens)

		api.GET("/redemption", handlers.Redemption)
		api.POST("/redemption", handlers.OpenRedemption)
		api.PATCH("/redemption", handlers.UpdateRedemption)
		api.POST("/redemption/submit", handlers.SubmitRedemption)
		api.DELETE("/redemption", handlers.CloseRedemption)

		api.GET("/notifications", handlers.Notifications)
		api.DELETE("/notifications/:id", handlers.DismissNotification)
	}

	// Session-protected routes
	protected := api.Group("")
	protected.Use(RequireSession(client))
	{
		protected.GET("/puro-account", handlers.PuroAccount)
		protected.GET("/orders", handlers.Orders)
	}

	return router
}
