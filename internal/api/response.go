// Package api provides handlers for external APIs and interfaces
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/usecases"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Response is the envelope of every JSON answer
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

// errorResponse maps an error to its status code and envelope
func errorResponse(err error) (int, Response) {
	var (
		verr     *entities.ValidationError
		upstream *entities.UpstreamError
		httpErr  *echo.HTTPError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, Response{Error: verr.Error()}
	case errors.Is(err, usecases.ErrNotFound):
		return http.StatusNotFound, Response{Error: "not found"}
	case errors.As(err, &upstream):
		resp := Response{Error: upstream.Error()}
		if json.Valid([]byte(upstream.Body)) {
			resp.Details = json.RawMessage(upstream.Body)
		} else if upstream.Body != "" {
			resp.Details = upstream.Body
		}
		return http.StatusInternalServerError, resp
	case errors.As(err, &httpErr):
		msg := http.StatusText(httpErr.Code)
		if s, isString := httpErr.Message.(string); isString {
			msg = s
		}
		return httpErr.Code, Response{Error: msg}
	default:
		return http.StatusInternalServerError, Response{Error: err.Error()}
	}
}

// ErrorHandler renders every returned or recovered error as a success:false envelope
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, resp := errorResponse(err)
	logger := requestLogger(c)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("path", c.Path()).Int("status", status).Msg("Request rejected")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, resp)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write error response")
	}
}

func requestLogger(c echo.Context) *zerolog.Logger {
	if l, found := c.Get("logger").(*zerolog.Logger); found {
		return l
	}
	return &log.Logger
}
