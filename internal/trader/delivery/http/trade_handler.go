package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"golang-crypto-trader/internal/trader/repository"
	"golang-crypto-trader/internal/trader/service"
	"golang-crypto-trader/pkg/logger"
)

// TradeHandler handles HTTP requests for auto trading.
type TradeHandler struct {
	autoTradeService service.AutoTradeService
	decisions        repository.TradeDecisionRepository
	logger           *logger.Logger
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(autoTradeService service.AutoTradeService, decisions repository.TradeDecisionRepository, logger *logger.Logger) *TradeHandler {
	return &TradeHandler{autoTradeService: autoTradeService, decisions: decisions, logger: logger}
}

// RegisterRoutes registers the trade routes to the Echo group.
func (h *TradeHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/run", h.RunAutoTrade)
	g.GET("/decisions", h.GetDecisions)
}

// RunAutoTrade executes one trade decision cycle.
func (h *TradeHandler) RunAutoTrade(c echo.Context) error {
	result, err := h.autoTradeService.Run(c.Request().Context())
	if err != nil {
		h.logger.Error("Auto trade run failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// GetDecisions lists recent trade decisions.
func (h *TradeHandler) GetDecisions(c echo.Context) error {
	market := c.QueryParam("market")
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		limit = parsed
	}

	decisions, err := h.decisions.FindLatest(c.Request().Context(), market, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, decisions)
}
