package main

import (
	"context"
	"net/http"
	"time"

	"catalog-backend/internal/shared/middleware"
	"catalog-backend/internal/shared/response"
	"catalog-backend/pkg/container"

	"github.com/gin-gonic/gin"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	router.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "route not found")
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupImportRoutes(v1, c)
	}

	return router
}

func setupImportRoutes(v1 *gin.RouterGroup, c *container.Container) {
	imports := v1.Group("/admin/import")
	imports.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		imports.POST("/products", c.ImportHandler.ImportProducts)
		imports.POST("/products/csv", c.ImportHandler.ImportCSV)
		imports.POST("/products/xlsx", c.ImportHandler.ImportXLSX)
		imports.POST("/metadata/refresh", c.ImportHandler.RefreshMetadata)
	}
}

// healthCheckHandler reports the state of the database and Redis.
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		defer cancel()

		status := gin.H{
			"status":      "ok",
			"environment": c.Config.App.Environment,
			"version":     c.Config.App.Version,
		}
		healthy := true

		if err := c.DB.HealthCheck(checkCtx); err != nil {
			status["database"] = err.Error()
			healthy = false
		} else {
			status["database"] = "ok"
		}

		if err := c.Cache.Ping(checkCtx); err != nil {
			status["redis"] = err.Error()
			healthy = false
		} else {
			status["redis"] = "ok"
		}

		if !healthy {
			status["status"] = "degraded"
			ctx.JSON(http.StatusServiceUnavailable, status)
			return
		}
		ctx.JSON(http.StatusOK, status)
	}
}
