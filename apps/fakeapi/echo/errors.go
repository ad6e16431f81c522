package fakeapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartpocket/console/core"
)

var (
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
)

// newAppHTTPErrorHandler returns an echo.HTTPErrorHandler speaking the Smart
// Pocket error contract: every non-2xx body carries a `message` field.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		body := echo.Map{"success": false}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			body["message"] = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			body["message"] = "validation failed"
			body["errors"] = core.TranslateValidationErrors(origErr)
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				body["message"] = "validation failed"
				body["errors"] = fldErrs
			} else {
				body["message"] = origErr.Error()
			}
		default: // any other error is a server error
			body["message"] = http.StatusText(code)
			logger.Error(http.StatusText(code), errors.Wrap(err, "handling request"))
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
