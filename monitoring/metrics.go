package monitoring

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"serialtool/controller"
	"serialtool/session"
)

// MetricsHandler renders session counters in Prometheus text format
type MetricsHandler struct {
	ctrl *controller.Controller
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(ctrl *controller.Controller) *MetricsHandler {
	return &MetricsHandler{
		ctrl: ctrl,
	}
}

// Handle serves GET /metrics
func (h *MetricsHandler) Handle(c echo.Context) error {
	info := h.ctrl.SessionInfo()
	var w bytes.Buffer

	fmt.Fprintln(&w, "# HELP serialtool_rx_bytes_total Bytes received in the current or last session")
	fmt.Fprintln(&w, "# TYPE serialtool_rx_bytes_total counter")
	fmt.Fprintf(&w, "serialtool_rx_bytes_total{port=%q} %d\n", info.Device, info.BytesRead)

	fmt.Fprintln(&w, "")
	fmt.Fprintln(&w, "# HELP serialtool_tx_bytes_total Bytes sent in the current or last session")
	fmt.Fprintln(&w, "# TYPE serialtool_tx_bytes_total counter")
	fmt.Fprintf(&w, "serialtool_tx_bytes_total{port=%q} %d\n", info.Device, info.BytesWritten)

	fmt.Fprintln(&w, "")
	fmt.Fprintln(&w, "# HELP serialtool_port_errors_total Port errors in the current or last session")
	fmt.Fprintln(&w, "# TYPE serialtool_port_errors_total counter")
	fmt.Fprintf(&w, "serialtool_port_errors_total{port=%q} %d\n", info.Device, info.Errors)

	up := 0
	if info.State == session.StateRunning {
		up = 1
	}
	fmt.Fprintln(&w, "")
	fmt.Fprintln(&w, "# HELP serialtool_port_up Session status (1=running, 0=not running)")
	fmt.Fprintln(&w, "# TYPE serialtool_port_up gauge")
	fmt.Fprintf(&w, "serialtool_port_up{port=%q} %d\n", info.Device, up)

	if !info.OpenedAt.IsZero() {
		fmt.Fprintln(&w, "")
		fmt.Fprintln(&w, "# HELP serialtool_session_opened_timestamp Unix timestamp the session was opened")
		fmt.Fprintln(&w, "# TYPE serialtool_session_opened_timestamp gauge")
		fmt.Fprintf(&w, "serialtool_session_opened_timestamp{port=%q} %d\n", info.Device, info.OpenedAt.Unix())
	}

	return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", w.Bytes())
}
