package api

import (
	"net/http"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/usecases"
	"github.com/labstack/echo/v4"
)

var recordRoutes = map[string]entities.RecordKind{
	"activities": entities.KindActivity,
	"meetings":   entities.KindMeeting,
	"plans":      entities.KindPlan,
}

type recordHandler struct {
	uc   *usecases.CareRecordUseCase
	kind entities.RecordKind
}

func (h *recordHandler) list(c echo.Context) error {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}

	records, err := h.uc.List(c.Request().Context(), entities.RecordFilter{
		Kind:      h.kind,
		ElderName: c.QueryParam("elderName"),
		From:      c.QueryParam("from"),
		To:        c.QueryParam("to"),
		Limit:     limit,
	})
	if err != nil {
		return err
	}
	if records == nil {
		records = []entities.CareRecord{}
	}
	return ok(c, http.StatusOK, records)
}

func (h *recordHandler) get(c echo.Context) error {
	rec, err := h.uc.Get(c.Request().Context(), h.kind, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, rec)
}

func (h *recordHandler) create(c echo.Context) error {
	var in usecases.CareRecordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := h.uc.Create(c.Request().Context(), h.kind, in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, rec)
}

func (h *recordHandler) update(c echo.Context) error {
	var in usecases.CareRecordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := h.uc.Update(c.Request().Context(), h.kind, c.Param("id"), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, rec)
}

func (h *recordHandler) delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), h.kind, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Message: "deleted"})
}
