package api

import (
	"errors"

	"DemandCast/internal/domain/models"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// toAppError maps domain errors to HTTP errors. Unknown errors yield nil.
func toAppError(err error) *xhttp.AppError {
	var de *models.DomainError
	if !errors.As(err, &de) {
		return nil
	}
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrNotFound):
		appErr = xhttp.NotFoundError(de.Message)
	case errors.Is(err, models.ErrDuplicate):
		appErr = xhttp.FieldError(xhttp.CodeDuplicate, "name", de.Message)
	case errors.Is(err, models.ErrUnsupportedAlgorithm):
		appErr = xhttp.FieldError(xhttp.CodeUnsupportedAlg, "algorithm", de.Message)
	case errors.Is(err, models.ErrNoData):
		appErr = xhttp.FieldError(xhttp.CodeNoData, "", de.Message)
	case errors.Is(err, models.ErrInsufficientData):
		appErr = xhttp.FieldError(xhttp.CodeInsufficient, "", de.Message)
	case errors.Is(err, models.ErrNoValidForecasts):
		appErr = xhttp.FieldError(xhttp.CodeNoForecasts, "", de.Message)
	default:
		appErr = xhttp.BadRequestError(de.Message)
	}
	return appErr.WithError(err)
}

// errorResponse writes err as an AppError, logging anything that is not a
// domain error as a server failure.
func errorResponse(c echo.Context, l *xlogger.Logger, op string, err error) error {
	if appErr := toAppError(err); appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	l.Error(op+" failed", xlogger.String("route", c.Path()), xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

func errorKind(err error) string {
	if toAppError(err) != nil {
		return "client"
	}
	return "server"
}
