package api

import (
	models "DemandCast/internal/domain/models"
	"DemandCast/internal/usecase"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DataEchoHandler serves the record browsing routes.
type DataEchoHandler struct {
	logger  *xlogger.Logger
	browser *usecase.DataBrowser
}

func NewDataEchoHandler(logger *xlogger.Logger, browser *usecase.DataBrowser) *DataEchoHandler {
	return &DataEchoHandler{logger: logger, browser: browser}
}

func (h *DataEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/database/stats", h.Stats)
	g.GET("/database/options", h.Options)
	g.POST("/database/filtered_options", h.FilteredOptions)
	g.POST("/database/view", h.View)
	g.GET("/external_factors", h.ExternalFactors)
}

func (h *DataEchoHandler) Stats(c echo.Context) error {
	res, err := h.browser.Stats(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.logger, "database stats", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DataEchoHandler) Options(c echo.Context) error {
	res, err := h.browser.Options(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.logger, "database options", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DataEchoHandler) FilteredOptions(c echo.Context) error {
	req := &models.FilteredOptionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.browser.FilteredOptions(c.Request().Context(), *req)
	if err != nil {
		return errorResponse(c, h.logger, "filtered options", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DataEchoHandler) View(c echo.Context) error {
	req := &models.DataViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.browser.View(c.Request().Context(), *req)
	if err != nil {
		return errorResponse(c, h.logger, "database view", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DataEchoHandler) ExternalFactors(c echo.Context) error {
	res, err := h.browser.ExternalFactors(c.Request().Context())
	if err != nil {
		return errorResponse(c, h.logger, "external factors", err)
	}
	return xhttp.SuccessResponse(c, res)
}
