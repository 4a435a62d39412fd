package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"golang-crypto-trader/internal/trader/service"
	"golang-crypto-trader/pkg/logger"
)

// MlHandler handles HTTP requests for the model pipeline.
type MlHandler struct {
	pipelineService  service.MlPipelineService
	evaluateService  service.MlEvaluateService
	lifecycleService service.ModelLifecycleService
	logger           *logger.Logger
}

// NewMlHandler creates a new MlHandler.
func NewMlHandler(pipelineService service.MlPipelineService, evaluateService service.MlEvaluateService, lifecycleService service.ModelLifecycleService, logger *logger.Logger) *MlHandler {
	return &MlHandler{
		pipelineService:  pipelineService,
		evaluateService:  evaluateService,
		lifecycleService: lifecycleService,
		logger:           logger,
	}
}

// RegisterRoutes registers the model pipeline routes to the Echo group.
func (h *MlHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/train", h.StartTraining)
	g.GET("/train/status", h.GetTrainingStatus)
	g.GET("/evaluate/predictions", h.GetPredictions)
	g.POST("/promote", h.Promote)
}

// StartTraining launches a background training run.
func (h *MlHandler) StartTraining(c echo.Context) error {
	if err := h.pipelineService.Start(c.Request().Context()); err != nil {
		if errors.Is(err, service.ErrPipelineBusy) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "training started"})
}

// GetTrainingStatus returns the current pipeline status snapshot.
func (h *MlHandler) GetTrainingStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.pipelineService.Status())
}

// GetPredictions compares staging and production predictions over a recent
// window.
func (h *MlHandler) GetPredictions(c echo.Context) error {
	results, err := h.evaluateService.GetPredictions(c.Request().Context())
	if err != nil {
		if errors.Is(err, service.ErrDataUnavailable) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, results)
}

// Promote archives production artifacts and promotes staging.
func (h *MlHandler) Promote(c echo.Context) error {
	if err := h.lifecycleService.Promote(c.Request().Context()); err != nil {
		h.logger.Error("Promotion failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "promotion completed"})
}
