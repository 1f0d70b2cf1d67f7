package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"FactorySense/internal/models"
	"FactorySense/pkg/logger"
)

// RequestLogger 记录每个进入和离开的 HTTP 请求。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.New("workflow-api", "", "").WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		})
		log.Info(fmt.Sprintf(">>> Incoming request: %s %s", c.Request.Method, c.Request.URL.Path))

		c.Next()

		log.Info(fmt.Sprintf("<<< Response: %s %s - Status: %d",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status()))
	}
}

// NewRouter 构建工作流服务的路由。
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/health", h.Health)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/analyze_machine", h.AnalyzeMachine)
		apiGroup.GET("/weatherforecast", h.Weather)
	}
	return router
}
