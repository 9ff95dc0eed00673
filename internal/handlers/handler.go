package handlers

import (
	"controlling_shade/internal/logger"
	"controlling_shade/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services    *service.Service
	log         *logger.Logger
	authEnabled bool
}

// NewHandler constructs a new HTTP handler with dependencies. With
// authEnabled false the /api/v1 group is served without a bearer token.
func NewHandler(services *service.Service, log *logger.Logger, authEnabled bool) *Handler {
	return &Handler{services: services, log: log, authEnabled: authEnabled}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	if h.authEnabled {
		api.Use(h.requireOperator)
	}
	{
		h.registerShadeRoutes(api)
		h.registerPropertyRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerShadeRoutes(api *gin.RouterGroup) {
	shade := api.Group("/shade")
	{
		shade.POST("/homing", h.homing)
		shade.POST("/open", h.open)
		shade.POST("/close", h.close)
		shade.POST("/stop", h.stop)
		// Body example: {"position":40}
		shade.POST("/position", h.moveTo)
		shade.POST("/apply-offset", h.applyOffset)
		shade.POST("/restart", h.restart)
		shade.GET("/state", h.getState)
	}
}

func (h *Handler) registerPropertyRoutes(api *gin.RouterGroup) {
	api.GET("/config", h.getConfig)
	props := api.Group("/properties")
	{
		props.GET("", h.getProperties)
		// Body example: {"value":"650"}
		props.PUT("/:name", h.setProperty)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
