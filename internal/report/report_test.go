package report

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedPicker always returns the same index
type fixedPicker int

func (p fixedPicker) Intn(n int) int { return int(p) % n }

func rec(t *testing.T, date, clock, sys, dia, temp string) entities.HealthRecord {
	t.Helper()
	r, err := entities.ParseHealthRecord(date, clock, sys, dia, temp)
	require.NoError(t, err)
	return r
}

func sampleRecords(t *testing.T) []entities.HealthRecord {
	return []entities.HealthRecord{
		rec(t, "2024-12-01", "09:00", "150", "95", "36.4"),
		rec(t, "2024-12-05", "09:30", "110", "70", "38.2"),
	}
}

func TestText_FixedGreetingAndStats(t *testing.T) {
	r := NewRenderer(ChartOptions{}, fixedPicker(1))
	records := sampleRecords(t)

	out := r.Text("王奶奶", health.Aggregate(records))

	assert.True(t, strings.HasPrefix(out, Greetings()[1]))
	assert.Contains(t, out, "王奶奶 的健康紀錄報告")
	assert.Contains(t, out, "2024/12/01 - 2024/12/05")
	assert.Contains(t, out, "紀錄筆數：2 筆")
	assert.Contains(t, out, "平均血壓：130/83 mmHg")
	assert.Contains(t, out, "平均體溫：37.3°C")
	assert.Contains(t, out, "2024/12/05 09:30")
	assert.Contains(t, out, "血壓 110/70 mmHg（正常）")
	assert.Contains(t, out, "體溫 38.2°C（發燒）")
	assert.Contains(t, out, "血壓偏高 1 次")

	// same picker, same output
	assert.Equal(t, out, r.Text("王奶奶", health.Aggregate(records)))
}

func TestText_NoRecords(t *testing.T) {
	r := NewRenderer(ChartOptions{}, fixedPicker(0))

	out := r.Text("王奶奶", health.Aggregate(nil))

	assert.Contains(t, out, "目前沒有可用的健康紀錄")
}

func TestChartURL_EncodesConfig(t *testing.T) {
	r := NewRenderer(ChartOptions{BaseURL: "https://chart.example/chart", Width: 500, Height: 300}, fixedPicker(0))
	records := append(sampleRecords(t), rec(t, "2024-12-03", "", "", "", "36.8"))

	raw := r.ChartURL(records)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "chart.example", u.Host)
	assert.Equal(t, "500", u.Query().Get("w"))
	assert.Equal(t, "300", u.Query().Get("h"))

	var cfg chartConfig
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("c")), &cfg))

	assert.Equal(t, "line", cfg.Type)
	assert.Equal(t, []string{"12/1", "12/3", "12/5"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 3)

	systolic := cfg.Data.Datasets[0].Data
	require.Len(t, systolic, 3)
	assert.Equal(t, 150.0, *systolic[0])
	assert.Nil(t, systolic[1])
	assert.Equal(t, 36.8, *cfg.Data.Datasets[2].Data[1])

	axes := cfg.Options.Scales.YAxes
	require.Len(t, axes, 2)
	assert.Equal(t, chartTicks{Min: 40, Max: 180}, axes[0].Ticks)
	assert.Equal(t, chartTicks{Min: 35, Max: 40}, axes[1].Ticks)
}

func TestChartURL_KeepsMostRecentFourteen(t *testing.T) {
	r := NewRenderer(ChartOptions{}, fixedPicker(0))
	var records []entities.HealthRecord
	for day := 1; day <= 20; day++ {
		d := entities.HealthRecord{}
		d.Date, _ = entities.ParseDate("2024-11-01")
		d.Date = d.Date.AddDate(0, 0, day-1)
		records = append(records, d)
	}

	u, err := url.Parse(r.ChartURL(records))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.String(), DefaultChartBaseURL+"?"))

	var cfg chartConfig
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("c")), &cfg))
	require.Len(t, cfg.Data.Labels, health.ChartWindow)
	assert.Equal(t, "11/7", cfg.Data.Labels[0])
	assert.Equal(t, "11/20", cfg.Data.Labels[13])
}

// findRow returns the value node of the row with the given label
func findRow(c entities.FlexComponent, label string) (entities.FlexComponent, bool) {
	if c.Type == "box" && c.Layout == "horizontal" && len(c.Contents) == 2 && c.Contents[0].Text == label {
		return c.Contents[1], true
	}
	for _, child := range c.Contents {
		if v, ok := findRow(child, label); ok {
			return v, true
		}
	}
	return entities.FlexComponent{}, false
}

func TestCard_ColorsFollowClassifier(t *testing.T) {
	r := NewRenderer(ChartOptions{}, fixedPicker(0))
	stats := health.Aggregate(sampleRecords(t))

	card := r.Card("王奶奶", stats)

	require.NotNil(t, card.Header)
	require.NotNil(t, card.Body)
	require.NotNil(t, card.Footer)
	assert.Equal(t, "bubble", card.Type)

	maxRow, ok := findRow(*card.Body, "最高血壓")
	require.True(t, ok)
	maxCat := health.ClassifyBloodPressure(stats.MaxBPRecord.Systolic, stats.MaxBPRecord.Diastolic)
	assert.Equal(t, maxCat.Color(), maxRow.Color)
	assert.Equal(t, health.CategoryHigh.Color(), maxRow.Color)

	minRow, ok := findRow(*card.Body, "最低血壓")
	require.True(t, ok)
	assert.Equal(t, health.CategoryNormal.Color(), minRow.Color)

	feverRow, ok := findRow(*card.Body, "體溫偏高")
	require.True(t, ok)
	assert.Equal(t, "1 次", feverRow.Text)
	assert.Equal(t, health.CategoryFever.Color(), feverRow.Color)
}

func TestCard_SerializesAsFlexBubble(t *testing.T) {
	r := NewRenderer(ChartOptions{}, fixedPicker(0))

	payload, err := json.Marshal(r.Card("王奶奶", health.Aggregate(sampleRecords(t))))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "bubble", doc["type"])
	header := doc["header"].(map[string]any)
	assert.Equal(t, "box", header["type"])
	assert.Equal(t, "vertical", header["layout"])
}

func TestCard_PlainTextFallback(t *testing.T) {
	r := NewRenderer(ChartOptions{}, fixedPicker(0))

	out := r.Card("王奶奶", health.Aggregate(sampleRecords(t))).PlainText()

	assert.Contains(t, out, "王奶奶")
	assert.Contains(t, out, "平均血壓 130/83 mmHg")
}

func TestAlert(t *testing.T) {
	r := NewRenderer(ChartOptions{}, fixedPicker(0))

	msg, ok := r.Alert("王奶奶", rec(t, "2024-12-05", "10:00", "160", "95", "36.6"))
	require.True(t, ok)
	assert.Contains(t, msg, "血壓 160/95 mmHg，偏高")
	assert.NotContains(t, msg, "體溫")

	_, ok = r.Alert("王奶奶", rec(t, "2024-12-05", "", "120", "80", "36.6"))
	assert.False(t, ok)
}
