package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/labtracker/internal/config"
	"github.com/polkiloo/labtracker/internal/server/http/handlers"
	"github.com/polkiloo/labtracker/internal/server/http/middleware"
)

const (
	feedPath     = "/ws"
	maxBodyBytes = 32 << 20
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.LabFacade, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		engine.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	}
	engine.Use(middleware.DecompressRequest(maxBodyBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{feedPath})))
	engine.Use(middleware.SessionRequired(facade))

	authHandler := handlers.NewAuthHandler(facade, cfg.Production())
	viewHandler := handlers.NewViewHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	importHandler := handlers.NewImportHandler(facade)
	feedHandler := handlers.NewFeedHandler(facade)

	engine.GET("/login", authHandler.LoginPage)
	engine.POST("/login", authHandler.Login)

	api := engine.Group("/api")
	api.POST("/verify-wipe-password", authHandler.VerifyWipePassword)
	api.GET("/health", feedHandler.Health)

	app := engine.Group("")
	app.Use(middleware.ViewID())
	app.GET("/", viewHandler.Page)
	app.GET(feedPath, feedHandler.Subscribe)

	view := app.Group("/view")
	view.PUT("/search", viewHandler.SetSearch)
	view.PUT("/filters/:dimension", viewHandler.SetFilter)
	view.POST("/sort", viewHandler.ToggleSort)
	view.PUT("/group", viewHandler.SetGroup)
	view.PUT("/page", viewHandler.SetPage)
	view.PUT("/page-size", viewHandler.SetPageSize)
	view.PUT("/columns", viewHandler.UpdateColumns)
	view.DELETE("/columns", viewHandler.ResetColumns)
	view.POST("/selection", viewHandler.ToggleSelect)
	view.POST("/selection/all", viewHandler.ToggleSelectAll)
	view.DELETE("/selection", viewHandler.ClearSelection)

	orders := app.Group("/orders")
	orders.GET("", viewHandler.Page)
	orders.POST("", orderHandler.Save)
	orders.DELETE("", orderHandler.DeleteAll)
	orders.GET("/export", importHandler.Export)
	orders.POST("/import/preview", importHandler.Preview)
	orders.POST("/import", importHandler.Import)
	orders.POST("/selection/receive", orderHandler.ReceiveSelected)
	orders.DELETE("/selection", orderHandler.DeleteSelected)
	orders.PATCH("/:id", orderHandler.Update)
	orders.DELETE("/:id", orderHandler.Delete)
	orders.POST("/:id/receive", orderHandler.Receive)
	orders.DELETE("/:id/receive", orderHandler.Revert)

	return engine
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowOrigins = origins
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Content-Encoding"}
	c.AllowCredentials = true
	return c
}
