package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// clientError maps the errors a client can act upon to a status and a body.
// ok is false for anything else, which is then reported as a server error.
func clientError(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	switch e := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if inner, isHTTP := e.Internal.(*echo.HTTPError); isHTTP {
			e = inner
		}
		return e.Code, e.Message, true

	case validator.ValidationErrors:
		fields := make(map[string]string, len(e))
		for _, fe := range e {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fields, true

	case *core.ValidationError:
		if len(e.Fields) == 0 {
			return http.StatusBadRequest, e.Error(), true
		}
		fields := make(map[string]string, len(e.Fields))
		for _, fe := range e.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true

	case *core.AuthorizationError:
		return http.StatusForbidden, errHttpForbidden.Message, true
	case *core.NotFoundError:
		return http.StatusNotFound, e.Error(), true
	case *core.ConflictError:
		return http.StatusConflict, e.Error(), true
	}
	return 0, nil, false
}

// newAppHTTPErrorHandler renders every handler error as JSON.
// Unexpected errors are logged along with the current principal, and a core shutdown error
// triggers signalShutdown so the server stops gracefully.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := clientError(err, translator)
		if !ok {
			code = http.StatusInternalServerError
			text := http.StatusText(code)
			body = text
			if ctx.Echo().Debug {
				body = err.Error()
			}

			args := []interface{}{errors.Wrap(err, text)}
			if p, pErr := getContextPrincipal(ctx); pErr == nil {
				args = append(args, p)
			}
			logger.Error(text, args...)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if msg, isText := body.(string); isText {
			body = echo.Map{"error": msg}
		}
		if ctx.Response().Committed {
			return
		}

		var sendErr error
		if ctx.Request().Method == http.MethodHead {
			sendErr = ctx.NoContent(code)
		} else {
			sendErr = ctx.JSON(code, body)
		}
		if sendErr != nil {
			ctx.Echo().Logger.Error(sendErr)
		}
	}
}
