package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"secureshare/storage"
)

// HealthChecker is anything that can report its own reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthController struct {
	appName     string
	version     string
	environment string
	storageInfo *storage.ProviderInfo
	checks      map[string]HealthChecker
	startedAt   time.Time
}

// NewHealthController reports on checks by name. Nil checkers are skipped.
func NewHealthController(appName, version, environment string, storageInfo *storage.ProviderInfo, checks map[string]HealthChecker) *HealthController {
	active := make(map[string]HealthChecker, len(checks))
	for name, check := range checks {
		if check != nil {
			active[name] = check
		}
	}
	return &HealthController{
		appName:     appName,
		version:     version,
		environment: environment,
		storageInfo: storageInfo,
		checks:      active,
		startedAt:   time.Now(),
	}
}

// Health returns 200 when every dependency answers and 503 otherwise.
func (hc *HealthController) Health(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"service":   hc.appName,
		"version":   hc.version,
		"timestamp": time.Now().Unix(),
	}

	status := http.StatusOK
	for name, check := range hc.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		err := check.HealthCheck(ctx)
		cancel()

		if err != nil {
			health["status"] = "degraded"
			health[name] = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			health[name] = "healthy"
		}
	}

	c.JSON(status, health)
}

func (hc *HealthController) Version(c *gin.Context) {
	info := gin.H{
		"name":        hc.appName,
		"version":     hc.version,
		"environment": hc.environment,
		"uptime":      time.Since(hc.startedAt).Round(time.Second).String(),
	}
	if hc.storageInfo != nil {
		// Endpoint and metadata stay private.
		info["storage"] = gin.H{"name": hc.storageInfo.Name, "type": hc.storageInfo.Type}
	}
	c.JSON(http.StatusOK, info)
}
