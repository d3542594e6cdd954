package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sumire/orgissues/internal/domain"
)

// Request identity headers. Their values are trusted verbatim.
const (
	HeaderOrganizationID = "X-Organization-Id"
	HeaderUserID         = "X-User-Id"
	HeaderUserRole       = "X-User-Role"
)

const (
	contextKeyTenant = "tenant"
)

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			}
			if tc, ok := GetTenant(c); ok {
				fields = append(fields, zap.String("organization_id", tc.OrganizationID))
			}
			log.Info("http request", fields...)

			return nil
		}
	}
}

// TenantContext builds the request's domain.TenantContext from the identity
// headers and rejects requests without an organization id.
func TenantContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			tc, err := domain.NewTenantContext(
				h.Get(HeaderOrganizationID),
				h.Get(HeaderUserID),
				h.Get(HeaderUserRole),
			)
			if err != nil {
				return err
			}

			c.Set(contextKeyTenant, tc)
			return next(c)
		}
	}
}

// GetTenant extracts the tenant context from echo context.
func GetTenant(c echo.Context) (domain.TenantContext, bool) {
	tc, ok := c.Get(contextKeyTenant).(domain.TenantContext)
	return tc, ok
}

func mustTenant(c echo.Context) (domain.TenantContext, error) {
	tc, ok := GetTenant(c)
	if !ok {
		return domain.TenantContext{}, domain.ErrMissingTenant
	}
	return tc, nil
}
