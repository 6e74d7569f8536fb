package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	loggerKey = "logger"
	userKey   = "user"
)

// requestID tags every request with an id, reusing an incoming
// X-Request-ID, and stores a child logger carrying it.
func (s *HTTPServer) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Request().Header.Set(echo.HeaderXRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)

		log := s.logger.With("request_id", id)
		c.Set(loggerKey, log)

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		log.Debug(c.Request().Context(), "request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"duration", time.Since(start))
		return nil
	}
}

func (s *HTTPServer) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		method := c.Request().Method
		path := c.Path()
		status := strconv.Itoa(c.Response().Status)
		s.metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		return nil
	}
}

// authenticate resolves the session and stores the user in the context.
func (s *HTTPServer) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == "" {
			return s.fail(c, common.ErrorUnauthorized)
		}

		user, err := s.services.Users.Authenticate(c.Request().Context(), token)
		if err != nil {
			return s.fail(c, err)
		}

		c.Set(userKey, user)
		c.Set(loggerKey, loggerFrom(c, s.logger).With("user_id", user.ID))
		return next(c)
	}
}

func (s *HTTPServer) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !currentUser(c).IsAdmin {
			return s.fail(c, common.ErrForbidden)
		}
		return next(c)
	}
}

func sessionToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if cookie, err := c.Cookie(common.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

func loggerFrom(c echo.Context, fallback logging.Logger) logging.Logger {
	if l, ok := c.Get(loggerKey).(logging.Logger); ok {
		return l
	}
	return fallback
}

func sessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
