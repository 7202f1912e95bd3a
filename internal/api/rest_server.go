package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/rts-pathfind/internal/auth"
	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/middleware"
	"github.com/annel0/rts-pathfind/internal/navigator"
)

// RestServer представляет REST API навигатора
type RestServer struct {
	router    *gin.Engine
	nav       *navigator.Navigator
	issuer    *auth.TokenIssuer
	operators auth.OperatorRepository
	port      string
	metrics   *ServerMetrics
	logger    *logging.Logger
	server    *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string               // порт для запуска сервера
	Navigator   *navigator.Navigator // обслуживаемый навигатор
	Issuer      *auth.TokenIssuer    // nil — изменения без токена
	Operators   auth.OperatorRepository
	Registry    *prometheus.Registry // nil — дефолтный регистр
	ServiceName string               // имя сервиса в метриках и трассировке
	GinMode     string               // release, debug или test
	Logger      *logging.Logger
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "pathfind"
	}
	if config.GinMode == "" {
		config.GinMode = gin.ReleaseMode
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}
	gin.SetMode(config.GinMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware(config.ServiceName, config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:    router,
		nav:       config.Navigator,
		issuer:    config.Issuer,
		operators: config.Operators,
		port:      config.Port,
		metrics:   NewServerMetrics(),
		logger:    config.Logger,
	}
	server.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	server.setupRoutes()
	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")

	// Чтение без авторизации
	api.POST("/login", rs.handleLogin)
	api.GET("/status", rs.handleStatus)
	api.GET("/agents", rs.handleListAgents)
	api.GET("/agents/:id", rs.handleGetAgent)
	api.GET("/obstacles", rs.handleListObstacles)
	api.GET("/portals", rs.handleListPortals)
	api.GET("/stand", rs.handleCanStand)
	api.GET("/area", rs.handleCheckArea)
	api.POST("/path", rs.handleFindPath)
	api.GET("/snapshot", rs.handleSnapshot)
	api.GET("/debug/next-points", rs.handleNextPoints)

	// Изменения (требуют JWT, если настроен секрет)
	protected := api.Group("/")
	protected.Use(rs.jwtMiddleware())
	{
		protected.POST("/agents", rs.handleSpawn)
		protected.DELETE("/agents/:id", rs.handleDespawn)
		protected.POST("/agents/:id/relocate", rs.handleRelocate)
		protected.POST("/agents/:id/order", rs.handleOrder)
		protected.POST("/groups/order", rs.handleOrderGroup)
		protected.POST("/obstacles", rs.handleAddObstacle)
		protected.DELETE("/obstacles/:id", rs.handleRemoveObstacle)
		protected.POST("/portals", rs.handleAddPortal)
		protected.DELETE("/portals/:id", rs.handleRemovePortal)
		protected.PUT("/terrain", rs.handleSetTerrain)
		protected.POST("/tick", rs.handleTick)
	}
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер и блокируется до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.port)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop плавно останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
