package monitoring

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"serialtool/controller"
)

const defaultEventLimit = 50

// APIHandler serves read-only views of controller state
type APIHandler struct {
	ctrl *controller.Controller
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(ctrl *controller.Controller) *APIHandler {
	return &APIHandler{
		ctrl: ctrl,
	}
}

// HandlePorts serves GET /api/ports
func (h *APIHandler) HandlePorts(c echo.Context) error {
	ports, err := h.ctrl.DetailedPorts()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ports": ports,
	})
}

// HandleEvents serves GET /api/events?limit=N with the most recent display lines
func (h *APIHandler) HandleEvents(c echo.Context) error {
	limit := defaultEventLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"mode":   h.ctrl.Mode(),
		"events": h.ctrl.Recent(limit),
	})
}

// HandleCommands serves GET /api/commands in the persisted record shape
func (h *APIHandler) HandleCommands(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"commands": h.ctrl.Library().ToSerializable(),
	})
}
