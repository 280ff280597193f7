package api

import (
	models "DemandCast/internal/domain/models"
	"DemandCast/internal/usecase"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ConfigurationsEchoHandler serves saved configuration CRUD.
type ConfigurationsEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.ConfigurationService
}

func NewConfigurationsEchoHandler(logger *xlogger.Logger, svc *usecase.ConfigurationService) *ConfigurationsEchoHandler {
	return &ConfigurationsEchoHandler{logger: logger, svc: svc}
}

func (h *ConfigurationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/configurations")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type configurationsResponse struct {
	Configurations []models.SavedConfiguration `json:"configurations"`
}

func (h *ConfigurationsEchoHandler) List(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.logger, "list configurations", err)
	}
	return xhttp.SuccessResponse(c, configurationsResponse{Configurations: list})
}

func (h *ConfigurationsEchoHandler) Create(c echo.Context) error {
	req := &models.ConfigurationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg, err := h.svc.Create(c.Request().Context(), *req)
	if err != nil {
		return errorResponse(c, h.logger, "create configuration", err)
	}
	return xhttp.CreatedResponse(c, cfg)
}

func (h *ConfigurationsEchoHandler) Get(c echo.Context) error {
	req := &models.ConfigurationIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg, err := h.svc.Get(c.Request().Context(), req.ID)
	if err != nil {
		return errorResponse(c, h.logger, "get configuration", err)
	}
	return xhttp.SuccessResponse(c, cfg)
}

func (h *ConfigurationsEchoHandler) Update(c echo.Context) error {
	req := &models.ConfigurationUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg, err := h.svc.Update(c.Request().Context(), *req)
	if err != nil {
		return errorResponse(c, h.logger, "update configuration", err)
	}
	return xhttp.SuccessResponse(c, cfg)
}

func (h *ConfigurationsEchoHandler) Delete(c echo.Context) error {
	req := &models.ConfigurationIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.svc.Delete(c.Request().Context(), req.ID); err != nil {
		return errorResponse(c, h.logger, "delete configuration", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"message": "Configuration deleted"})
}
