package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emisoft/buzon/core"
	"github.com/emisoft/buzon/core/otp"
)

const (
	sessionCookieName = "buzon_sid"
	contextSIDKey     = "sid"
)

// sessionMiddleware ensures every visitor carries an opaque session id
// cookie. The cookie never holds verification state, only the random id.
func sessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cookie, err := ctx.Cookie(sessionCookieName)
			if err == nil && cookie.Value != "" {
				ctx.Set(contextSIDKey, cookie.Value)
				return next(ctx)
			}

			sid, err := otp.NewSessionID()
			if err != nil {
				return err
			}
			ctx.SetCookie(&http.Cookie{
				Name:     sessionCookieName,
				Value:    sid,
				Path:     "/",
				Expires:  time.Now().Add(core.Conf.Redis.SessionTTL),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			ctx.Set(contextSIDKey, sid)
			return next(ctx)
		}
	}
}

func getContextSID(ctx echo.Context) string {
	if sid, ok := ctx.Get(contextSIDKey).(string); ok {
		return sid
	}
	return ""
}
