// Package api exposes the workflow service over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"FactorySense/internal/models"
	"FactorySense/internal/workflow_service/service"
	"FactorySense/pkg/logger"
)

// Handler holds the service dependencies for the HTTP endpoints.
type Handler struct {
	svc   *service.Service
	cache *redis.Client
	log   *logger.Logger
}

func NewHandler(svc *service.Service, cache *redis.Client) *Handler {
	return &Handler{
		svc:   svc,
		cache: cache,
		log:   logger.New("workflow-api", "", ""),
	}
}

// AnalyzeMachineRequest 是机器分析接口的请求体。
type AnalyzeMachineRequest struct {
	MachineID string `json:"machine_id" binding:"required"`
	Telemetry any    `json:"telemetry"`
}

// problemDetails 与 RFC 7807 错误响应格式保持一致。
type problemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func problem(c *gin.Context, status int, detail string) {
	c.JSON(status, problemDetails{
		Type:   fmt.Sprintf("https://httpstatuses.io/%d", status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

// AnalyzeMachine runs the full agent pipeline for one machine and
// returns the per-step trace.
func (h *Handler) AnalyzeMachine(c *gin.Context) {
	var req AnalyzeMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.svc.AnalyzeMachine(c.Request.Context(), req.MachineID, req.Telemetry)
	if err != nil {
		h.log.WithError(models.ErrorInfo{Message: err.Error(), StatusCode: http.StatusInternalServerError}).
			Error("machine analysis failed")
		problem(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// healthResponse 是健康检查接口的响应体。
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "Healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WeatherForecast 是示例天气接口的单日预报。
type WeatherForecast struct {
	Date         string `json:"date"`
	TemperatureC int    `json:"temperatureC"`
	TemperatureF int    `json:"temperatureF"`
	Summary      string `json:"summary"`
}

var weatherSummaries = []string{
	"Freezing", "Bracing", "Chilly", "Cool", "Mild",
	"Warm", "Balmy", "Hot", "Sweltering", "Scorching",
}

const weatherCacheKey = "weatherforecast"
const weatherCacheTTL = time.Minute

// Weather returns a five-day forecast. Results are cached in Redis for
// a minute so the endpoint doubles as a cache smoke test.
func (h *Handler) Weather(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if raw, err := h.cache.Get(ctx, weatherCacheKey).Result(); err == nil {
			var cached []WeatherForecast
			if json.Unmarshal([]byte(raw), &cached) == nil {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
	}

	forecast := make([]WeatherForecast, 5)
	for i := range forecast {
		tempC := rand.Intn(76) - 20 // -20..55
		forecast[i] = WeatherForecast{
			Date:         time.Now().AddDate(0, 0, i+1).Format("2006-01-02"),
			TemperatureC: tempC,
			TemperatureF: 32 + int(float64(tempC)/0.5556),
			Summary:      weatherSummaries[rand.Intn(len(weatherSummaries))],
		}
	}

	if h.cache != nil {
		if raw, err := json.Marshal(forecast); err == nil {
			h.cache.Set(ctx, weatherCacheKey, raw, weatherCacheTTL)
		}
	}
	c.JSON(http.StatusOK, forecast)
}
