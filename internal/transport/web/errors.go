package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// inputErrors map to 400 Bad Request; anything else is a 500.
var inputErrors = []struct {
	err  error
	code string
}{
	{query.ErrInvalidMode, "invalid_mode"},
	{query.ErrMissingField, "missing_field"},
	{query.ErrMalformedRange, "malformed_range"},
	{query.ErrInjectionRisk, "injection_risk"},
}

// httpErrorHandler renders {"error": {"code", "message", "field"}}.
func httpErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := map[string]any{
			"code":    "internal_error",
			"message": "query failed",
		}

		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			status = he.Code
			body["code"] = http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok {
				body["message"] = msg
			}
		default:
			for _, ie := range inputErrors {
				if errors.Is(err, ie.err) {
					status = http.StatusBadRequest
					body["code"] = ie.code
					body["message"] = err.Error()
					var fe *query.FieldError
					if errors.As(err, &fe) {
						body["field"] = fe.Field
					}
					break
				}
			}
		}

		if status >= http.StatusInternalServerError {
			log.Error("request error", slog.String("uri", c.Request().RequestURI), slog.Any("error", err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, map[string]any{"error": body})
		}
		if werr != nil {
			log.Error("write error response", slog.Any("error", werr))
		}
	}
}
