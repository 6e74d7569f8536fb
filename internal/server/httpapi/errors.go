package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/labstack/echo/v4"
)

type apiError struct {
	status  int
	message string
}

// errorKinds is ordered; the first match wins.
var errorKinds = []struct {
	err error
	apiError
}{
	{common.ErrContainerFormat, apiError{http.StatusBadRequest, "invalid snapshot file"}},
	{common.ErrValidation, apiError{http.StatusBadRequest, "invalid request"}},
	{common.ErrTokenExpired, apiError{http.StatusUnauthorized, "session expired"}},
	{common.ErrInvalidToken, apiError{http.StatusUnauthorized, "unauthorized"}},
	{common.ErrorUnauthorized, apiError{http.StatusUnauthorized, "unauthorized"}},
	{common.ErrForbidden, apiError{http.StatusForbidden, "forbidden"}},
	{common.ErrorNotFound, apiError{http.StatusNotFound, "not found"}},
	{common.ErrConstraintViolation, apiError{http.StatusConflict, "conflict"}},
}

var internalError = apiError{http.StatusInternalServerError, "internal error"}

func classify(err error) apiError {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.apiError
		}
	}
	return internalError
}

// fail writes the stable response for err. Server faults are logged with
// the underlying error, which never reaches the client.
func (s *HTTPServer) fail(c echo.Context, err error) error {
	e := classify(err)
	if e.status == http.StatusInternalServerError {
		loggerFrom(c, s.logger).Error(c.Request().Context(), "request failed", "error", err)
	}
	return c.JSON(e.status, echo.Map{"message": e.message})
}

// handleEchoError renders errors raised by echo itself (unknown routes,
// oversized bodies) in the same shape as handler errors.
func (s *HTTPServer) handleEchoError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = s.fail(c, err)
		return
	}

	msg := http.StatusText(he.Code)
	if he.Code >= http.StatusInternalServerError {
		loggerFrom(c, s.logger).Error(c.Request().Context(), "request failed", "error", err)
		msg = internalError.message
	}
	_ = c.JSON(he.Code, echo.Map{"message": msg})
}
