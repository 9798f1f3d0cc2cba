package health

import (
	"context"
	"net/http"
	"time"

	"github.com/bubblesight/backend/internal/database"
	"github.com/bubblesight/backend/internal/models"
	"github.com/bubblesight/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthChecker probes the service's external collaborators
type HealthChecker struct {
	dbManager    *database.Manager
	logger       *logrus.Logger
	inferenceURL string
	httpClient   *http.Client
}

func NewHealthChecker(dbManager *database.Manager, logger *logrus.Logger, inferenceURL string) *HealthChecker {
	return &HealthChecker{
		dbManager:    dbManager,
		logger:       logger,
		inferenceURL: inferenceURL,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

// CheckPostgreSQL checks database connectivity
func (h *HealthChecker) CheckPostgreSQL() string {
	if err := h.dbManager.PingDatabase(); err != nil {
		h.logger.WithError(err).Warn("PostgreSQL health check failed")
		return "unhealthy"
	}
	return "healthy"
}

// CheckRedis checks cache connectivity
func (h *HealthChecker) CheckRedis() string {
	if err := h.dbManager.PingRedis(); err != nil {
		h.logger.WithError(err).Warn("Redis health check failed")
		return "unhealthy"
	}
	return "healthy"
}

// CheckInference checks that the completion endpoint is reachable. Any HTTP
// response counts as reachable; the classifier tolerates degraded output.
func (h *HealthChecker) CheckInference(ctx context.Context) string {
	if h.inferenceURL == "" {
		return "unconfigured"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.inferenceURL, nil)
	if err != nil {
		return "unhealthy"
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.WithError(err).Warn("Inference endpoint health check failed")
		return "unhealthy"
	}
	resp.Body.Close()

	return "healthy"
}

// HandleHealth serves GET /api/health
func (h *HealthChecker) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := map[string]string{
		"postgresql": h.CheckPostgreSQL(),
		"redis":      h.CheckRedis(),
		"inference":  h.CheckInference(ctx),
	}

	status := "ok"
	for _, state := range services {
		if state == "unhealthy" {
			status = "degraded"
			break
		}
	}

	response := models.HealthResponse{
		Status:    status,
		Service:   "feedback-bubbles-api",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	// Degraded detail lives in the payload; the probe endpoint itself stays 200
	utils.SuccessResponse(c, http.StatusOK, "Health check", response)
}
