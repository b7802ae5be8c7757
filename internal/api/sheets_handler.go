package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/integration/sheets"
	"github.com/labstack/echo/v4"
)

// SheetData is a worksheet read keyed by its header row
type SheetData struct {
	Range string              `json:"range"`
	Rows  []map[string]string `json:"rows"`
}

// sheetHandler proxies a worksheet read through the cache. ?refresh=1 bypasses it
// for this range, ?refresh=all empties the whole cache first.
func (s *Server) sheetHandler(c echo.Context) error {
	sheet, err := url.PathUnescape(c.Param("sheet"))
	if err != nil || strings.TrimSpace(sheet) == "" {
		return entities.Missing("sheet")
	}

	rng := sheet
	if cells := c.QueryParam("range"); cells != "" {
		rng = sheet + "!" + cells
	}

	ctx := c.Request().Context()
	var rows [][]string
	switch c.QueryParam("refresh") {
	case "1", "true":
		rows, err = s.deps.Sheets.Refresh(ctx, rng)
	case "all":
		s.deps.Sheets.Purge()
		requestLogger(c).Info().Msg("Sheet cache purged")
		rows, err = s.deps.Sheets.Read(ctx, rng)
	default:
		rows, err = s.deps.Sheets.Read(ctx, rng)
	}
	if err != nil {
		return err
	}

	objects := sheets.RowsToObjects(rows)
	if objects == nil {
		objects = []map[string]string{}
	}
	return ok(c, http.StatusOK, SheetData{Range: rng, Rows: objects})
}
