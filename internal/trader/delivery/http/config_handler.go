package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"
)

// ConfigHandler handles HTTP requests for the trading parameters.
type ConfigHandler struct {
	store  storage.Client
	logger *logger.Logger
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(store storage.Client, logger *logger.Logger) *ConfigHandler {
	return &ConfigHandler{store: store, logger: logger}
}

// RegisterRoutes registers the config routes to the Echo group.
func (h *ConfigHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetConfig)
	g.PUT("", h.UpdateConfig)
}

// GetConfig returns the active trading parameters.
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	cfg, err := config.LoadTradingConfig(c.Request().Context(), h.store)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, cfg)
}

// UpdateConfig validates and persists new trading parameters. They take
// effect on the next pipeline or trade run.
func (h *ConfigHandler) UpdateConfig(c echo.Context) error {
	cfg := config.DefaultTradingConfig()
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if err := config.SaveTradingConfig(c.Request().Context(), h.store, cfg); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	h.logger.Info("Trading config updated")
	return c.JSON(http.StatusOK, cfg)
}
