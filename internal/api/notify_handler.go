package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/integration/line"
	"github.com/carelog/daycare-bot/internal/usecases"
	"github.com/labstack/echo/v4"
)

// notifyHandler accepts both action requests and LINE webhook deliveries.
// Deliveries must carry a valid signature when a channel secret is configured.
func (s *Server) notifyHandler(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read request body")
	}

	var req usecases.NotifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var verr *entities.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}

	if req.Action == "" && req.Events != nil {
		sig := c.Request().Header.Get(line.SignatureHeader)
		if !line.VerifySignature(s.deps.LINEChannelSecret, body, sig) {
			requestLogger(c).Warn().Msg("Rejected webhook with bad signature")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
	} else if !s.authorizedAction(c) {
		requestLogger(c).Warn().Str("action", req.Action).Msg("Rejected unauthenticated action request")
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid bearer token")
	}

	result, err := s.deps.Reports.Dispatch(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// authorizedAction checks the bearer token of a dispatcher action request.
// No configured token accepts every request.
func (s *Server) authorizedAction(c echo.Context) bool {
	if s.deps.APIToken == "" {
		return true
	}
	token, found := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !found {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.deps.APIToken)) == 1
}

func (s *Server) listEldersHandler(c echo.Context) error {
	elders, err := s.deps.Reports.ListElders(c.Request().Context())
	if err != nil {
		return err
	}
	if elders == nil {
		elders = []entities.Elder{}
	}
	return ok(c, http.StatusOK, elders)
}

func (s *Server) elderHealthHandler(c echo.Context) error {
	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		return &entities.ValidationError{Field: "name", Message: "malformed elder name"}
	}

	days, err := intQuery(c, "days")
	if err != nil {
		return err
	}

	h, err := s.deps.Reports.GetElderHealth(c.Request().Context(), name, days)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, h)
}

func (s *Server) listNotificationsHandler(c echo.Context) error {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = 50
	}

	logs, err := s.deps.Notifications.ListNotifications(c.Request().Context(), c.QueryParam("elderName"), limit)
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []entities.NotificationLog{}
	}
	return ok(c, http.StatusOK, logs)
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &entities.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}
