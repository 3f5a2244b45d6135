package requestinfo

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Middleware captures the client IP and user agent of every request into the
// request context, where the token engine picks them up for audit columns.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			info := ClientInfo{
				IP:        ResolveIP(req),
				UserAgent: req.UserAgent(),
				RequestID: uuid.NewString(),
			}

			c.SetRequest(req.WithContext(NewContext(req.Context(), info)))
			return next(c)
		}
	}
}

// ResolveIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket remote address.
func ResolveIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
