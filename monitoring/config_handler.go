package monitoring

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"serialtool/config"
)

const redacted = "[redacted]"

// ConfigHandler exposes the effective configuration
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// Handle serves GET /api/config with secrets redacted
func (h *ConfigHandler) Handle(c echo.Context) error {
	cfg := *h.config
	if cfg.Notify.WebhookURL != "" {
		cfg.Notify.WebhookURL = redacted
	}
	return c.JSON(http.StatusOK, cfg)
}
