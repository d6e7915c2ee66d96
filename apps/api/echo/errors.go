package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/emisoft/buzon/core"
	"github.com/emisoft/buzon/core/otp"
	"github.com/emisoft/buzon/core/staff"
	"github.com/emisoft/buzon/core/ticket"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "usuario no autenticado")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "credenciales incorrectas")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "cuenta desactivada")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permiso denegado")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "no encontrado")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch origErr {
			case ticket.ErrNotFound, ticket.ErrCategoryNotFound, staff.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case ticket.ErrCategoryInUse:
				code = http.StatusConflict
				message = origErr.Error()
			case otp.ErrCodeMismatch, otp.ErrCodeExpired, otp.ErrTooManyAttempts:
				code = http.StatusBadRequest
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
