package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/rs/zerolog/log"
)

// Column aliases accepted in header rows, matched case-insensitively
var (
	nameColumns        = []string{"name", "eldername", "姓名", "長輩姓名", "長輩"}
	contactColumns     = []string{"lineuserid", "familycontactid", "contactid", "userid", "家屬id", "家屬line"}
	dateColumns        = []string{"date", "日期"}
	timeColumns        = []string{"time", "時間"}
	systolicColumns    = []string{"systolic", "收縮壓"}
	diastolicColumns   = []string{"diastolic", "舒張壓"}
	temperatureColumns = []string{"temperature", "temp", "體溫"}
)

// HealthSource reads the elder roster and health measurements from sheet ranges
type HealthSource struct {
	reader      Reader
	eldersRange string
	healthRange string
}

// NewHealthSource creates a source over the given ranges
func NewHealthSource(reader Reader, eldersRange, healthRange string) *HealthSource {
	return &HealthSource{reader: reader, eldersRange: eldersRange, healthRange: healthRange}
}

// ListElders returns every named elder in roster order
func (s *HealthSource) ListElders(ctx context.Context) ([]entities.Elder, error) {
	rows, err := s.reader.Read(ctx, s.eldersRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read elders: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := indexHeader(rows[0])
	nameIdx := cols.find(nameColumns)
	if nameIdx < 0 {
		return nil, fmt.Errorf("elders sheet has no name column")
	}
	contactIdx := cols.find(contactColumns)

	var elders []entities.Elder
	for _, row := range rows[1:] {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}
		elders = append(elders, entities.Elder{Name: name, FamilyContactID: cell(row, contactIdx)})
	}
	return elders, nil
}

// FindElder looks up an elder by exact name
func (s *HealthSource) FindElder(ctx context.Context, name string) (entities.Elder, bool, error) {
	elders, err := s.ListElders(ctx)
	if err != nil {
		return entities.Elder{}, false, err
	}
	for _, e := range elders {
		if e.Name == name {
			return e, true, nil
		}
	}
	return entities.Elder{}, false, nil
}

// RecentRecords returns the elder's measurements dated on or after since.
// Rows that fail to parse are logged and skipped.
func (s *HealthSource) RecentRecords(ctx context.Context, elderName string, since time.Time) ([]entities.HealthRecord, error) {
	rows, err := s.reader.Read(ctx, s.healthRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read health records: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := indexHeader(rows[0])
	nameIdx := cols.find(nameColumns)
	dateIdx := cols.find(dateColumns)
	if nameIdx < 0 || dateIdx < 0 {
		return nil, fmt.Errorf("health sheet needs name and date columns")
	}
	timeIdx := cols.find(timeColumns)
	sysIdx := cols.find(systolicColumns)
	diaIdx := cols.find(diastolicColumns)
	tempIdx := cols.find(temperatureColumns)

	cutoff := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)

	var records []entities.HealthRecord
	for i, row := range rows[1:] {
		if cell(row, nameIdx) != elderName {
			continue
		}
		rec, err := entities.ParseHealthRecord(
			cell(row, dateIdx),
			cell(row, timeIdx),
			cell(row, sysIdx),
			cell(row, diaIdx),
			cell(row, tempIdx),
		)
		if err != nil {
			log.Warn().Err(err).Int("row", i+2).Str("elder", elderName).Msg("Skipping unparseable health row")
			continue
		}
		if !since.IsZero() && rec.Date.Before(cutoff) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

type header map[string]int

func indexHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := normalizeColumn(name)
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

func (h header) find(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func normalizeColumn(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// RowsToObjects keys every data row by the header row.
// Missing trailing cells become empty strings.
func RowsToObjects(rows [][]string) []map[string]string {
	if len(rows) == 0 {
		return []map[string]string{}
	}
	head := rows[0]
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		obj := make(map[string]string, len(head))
		for i, key := range head {
			if key == "" {
				continue
			}
			obj[key] = cell(row, i)
		}
		out = append(out, obj)
	}
	return out
}
