package handler

import (
	"errors"
	"net/http"
	"strings"

	"orderapp/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// 4xxはここで返す。500はErrorHandlerに任せる（ログを残すため）
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	he, ok := usecase.AsHTTPError(err)
	if !ok || he.Status >= http.StatusInternalServerError {
		return err
	}
	return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: he.Code, Fields: he.Fields})
}

func invalidBody() error {
	return usecase.ValidationFailed(map[string][]string{"body": {"Request body is invalid."}})
}

func invalidParam(name string, msg string) error {
	return usecase.ValidationFailed(map[string][]string{name: {msg}})
}

// echo全体のエラーをErrorResponseの形にそろえる
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorResponse{Error: "internal error", Code: usecase.CodeInternal}

		var eh *echo.HTTPError
		if he, ok := usecase.AsHTTPError(err); ok {
			status = he.Status
			if status < http.StatusInternalServerError {
				body = ErrorResponse{Error: he.Message, Code: he.Code, Fields: he.Fields}
			}
		} else if errors.As(err, &eh) {
			status = eh.Code
			if status < http.StatusInternalServerError {
				msg, _ := eh.Message.(string)
				if msg == "" {
					msg = http.StatusText(status)
				}
				body = ErrorResponse{Error: strings.ToLower(msg), Code: statusCode(status)}
			}
		}

		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

// "Not Found" → "NOT_FOUND"
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
