package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportSheets = []struct {
	kind  entities.RecordKind
	title string
}{
	{entities.KindActivity, "活動紀錄"},
	{entities.KindMeeting, "會議紀錄"},
	{entities.KindPlan, "照顧計畫"},
}

var exportHeader = []string{"日期", "標題", "長輩", "參與人員", "內容", "標籤", "狀態", "建立時間"}

var exportColumnWidths = []float64{12, 24, 12, 24, 48, 18, 10, 20}

func (s *Server) exportHandler(c echo.Context) error {
	var only entities.RecordKind
	if raw := c.QueryParam("kind"); raw != "" {
		kind, err := entities.ParseRecordKind(raw)
		if err != nil {
			return &entities.ValidationError{Field: "kind", Message: err.Error()}
		}
		only = kind
	}

	ctx := c.Request().Context()
	byKind := make(map[entities.RecordKind][]entities.CareRecord)
	for _, sheet := range exportSheets {
		if only != "" && sheet.kind != only {
			continue
		}
		records, err := s.deps.Records.List(ctx, entities.RecordFilter{
			Kind:      sheet.kind,
			ElderName: c.QueryParam("elderName"),
			From:      c.QueryParam("from"),
			To:        c.QueryParam("to"),
		})
		if err != nil {
			return err
		}
		byKind[sheet.kind] = records
	}

	data, err := GenerateRecordExport(only, byKind)
	if err != nil {
		return err
	}

	name := "care-records"
	if only != "" {
		name += "-" + string(only)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s-%s.xlsx", name, time.Now().Format("20060102")))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// GenerateRecordExport writes one worksheet per record kind. When only is set
// the workbook holds that kind alone.
func GenerateRecordExport(only entities.RecordKind, byKind map[entities.RecordKind][]entities.CareRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	first := true
	for _, sheet := range exportSheets {
		if only != "" && sheet.kind != only {
			continue
		}
		index, err := f.NewSheet(sheet.title)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.title, err)
		}
		if first {
			f.SetActiveSheet(index)
			first = false
		}
		if err := writeRecordSheet(f, sheet.title, headerStyle, byKind[sheet.kind]); err != nil {
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRecordSheet(f *excelize.File, sheet string, headerStyle int, records []entities.CareRecord) error {
	for col, header := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, exportColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			rec.Date,
			rec.Title,
			rec.ElderName,
			strings.Join(rec.Participants, "、"),
			rec.Content,
			strings.Join(rec.Tags, "、"),
			rec.Status,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}
