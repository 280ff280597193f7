package api

import (
	models "DemandCast/internal/domain/models"
	"DemandCast/internal/usecase"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ModelCacheEchoHandler serves model cache inspection and cleanup.
type ModelCacheEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.ModelCacheService
}

func NewModelCacheEchoHandler(logger *xlogger.Logger, svc *usecase.ModelCacheService) *ModelCacheEchoHandler {
	return &ModelCacheEchoHandler{logger: logger, svc: svc}
}

func (h *ModelCacheEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/accuracy_history/:config_hash", h.AccuracyHistory)
	g.GET("/model_cache_info", h.Info)
	g.POST("/clear_model_cache", h.ClearOld)
	g.POST("/clear_all_model_cache", h.ClearAll)
}

type accuracyHistoryResponse struct {
	ConfigHash string                  `json:"config_hash"`
	History    []models.AccuracyRecord `json:"history"`
}

func (h *ModelCacheEchoHandler) AccuracyHistory(c echo.Context) error {
	req := &models.AccuracyHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hist, err := h.svc.AccuracyHistory(c.Request().Context(), req.ConfigHash, req.DaysBack)
	if err != nil {
		return errorResponse(c, h.logger, "accuracy history", err)
	}
	return xhttp.SuccessResponse(c, accuracyHistoryResponse{ConfigHash: req.ConfigHash, History: hist})
}

type cacheInfoResponse struct {
	CachedModels []models.CacheInfo `json:"cached_models"`
}

func (h *ModelCacheEchoHandler) Info(c echo.Context) error {
	list, err := h.svc.Info(c.Request().Context(), xhttp.QueryInt(c, "limit", 50, 1))
	if err != nil {
		return errorResponse(c, h.logger, "model cache info", err)
	}
	return xhttp.SuccessResponse(c, cacheInfoResponse{CachedModels: list})
}

func (h *ModelCacheEchoHandler) ClearOld(c echo.Context) error {
	res, err := h.svc.ClearOld(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.logger, "clear model cache", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ModelCacheEchoHandler) ClearAll(c echo.Context) error {
	res, err := h.svc.ClearAll(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.logger, "clear all model cache", err)
	}
	return xhttp.SuccessResponse(c, res)
}
