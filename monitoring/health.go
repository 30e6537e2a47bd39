package monitoring

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"serialtool/controller"
	"serialtool/session"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string       `json:"status"`
	InstanceID string       `json:"instance_id"`
	Version    string       `json:"version"`
	UptimeSec  int64        `json:"uptime_sec"`
	Session    session.Info `json:"session"`
}

// HealthHandler reports whether the session is in a failed state
type HealthHandler struct {
	instanceID string
	version    string
	startTime  time.Time
	ctrl       *controller.Controller
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(instanceID, version string, ctrl *controller.Controller) *HealthHandler {
	return &HealthHandler{
		instanceID: instanceID,
		version:    version,
		startTime:  time.Now(),
		ctrl:       ctrl,
	}
}

// Handle serves GET /health
func (h *HealthHandler) Handle(c echo.Context) error {
	info := h.ctrl.SessionInfo()

	status := "healthy"
	code := http.StatusOK
	if info.State == session.StateError {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, HealthResponse{
		Status:     status,
		InstanceID: h.instanceID,
		Version:    h.version,
		UptimeSec:  int64(time.Since(h.startTime).Seconds()),
		Session:    info,
	})
}
