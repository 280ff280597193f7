package http

import (
	xutil "DemandCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// QueryInt reads an integer query parameter, falling back to def when it is
// missing, malformed or below min.
func QueryInt(c echo.Context, name string, def, min int) int {
	n := xutil.ParseIntDefault(c.QueryParam(name), def)
	if n < min {
		return def
	}
	return n
}
