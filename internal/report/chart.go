package report

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/health"
)

// DefaultChartBaseURL is the QuickChart rendering endpoint
const DefaultChartBaseURL = "https://quickchart.io/chart"

const (
	defaultChartWidth  = 600
	defaultChartHeight = 400
)

// Fixed axis bounds
const (
	BPAxisMin   = 40
	BPAxisMax   = 180
	TempAxisMin = 35
	TempAxisMax = 40
)

// ChartOptions configures the chart endpoint and image size
type ChartOptions struct {
	BaseURL string
	Width   int
	Height  int
}

// Chart.js v2 configuration, the dialect QuickChart renders by default
type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	BorderColor string     `json:"borderColor"`
	Fill        bool       `json:"fill"`
	YAxisID     string     `json:"yAxisID"`
	SpanGaps    bool       `json:"spanGaps"`
}

type chartOptions struct {
	Title  chartTitle  `json:"title"`
	Scales chartScales `json:"scales"`
}

type chartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type chartScales struct {
	YAxes []chartAxis `json:"yAxes"`
}

type chartAxis struct {
	ID         string          `json:"id"`
	Position   string          `json:"position"`
	Ticks      chartTicks      `json:"ticks"`
	ScaleLabel chartScaleLabel `json:"scaleLabel"`
}

type chartScaleLabel struct {
	Display     bool   `json:"display"`
	LabelString string `json:"labelString"`
}

type chartTicks struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

const (
	bpAxisID   = "bp"
	tempAxisID = "temp"
)

// ChartURL encodes a line chart of the most recent records into a chart endpoint URL.
// Missing readings become gaps.
func (r *Renderer) ChartURL(records []entities.HealthRecord) string {
	cfg := buildChartConfig(health.RecentRecords(records, health.ChartWindow))

	// chartConfig holds only strings, numbers and slices, Marshal cannot fail
	payload, _ := json.Marshal(cfg)

	q := url.Values{}
	q.Set("c", string(payload))
	q.Set("w", strconv.Itoa(r.chart.Width))
	q.Set("h", strconv.Itoa(r.chart.Height))
	q.Set("bkg", "white")
	return r.chart.BaseURL + "?" + q.Encode()
}

func buildChartConfig(records []entities.HealthRecord) chartConfig {
	labels := make([]string, 0, len(records))
	systolic := make([]*float64, 0, len(records))
	diastolic := make([]*float64, 0, len(records))
	temperature := make([]*float64, 0, len(records))

	for _, rec := range records {
		labels = append(labels, fmt.Sprintf("%d/%d", int(rec.Date.Month()), rec.Date.Day()))

		if rec.HasBloodPressure() {
			s, d := float64(*rec.Systolic), float64(*rec.Diastolic)
			systolic = append(systolic, &s)
			diastolic = append(diastolic, &d)
		} else {
			systolic = append(systolic, nil)
			diastolic = append(diastolic, nil)
		}

		if rec.HasTemperature() {
			t := *rec.Temperature
			temperature = append(temperature, &t)
		} else {
			temperature = append(temperature, nil)
		}
	}

	return chartConfig{
		Type: "line",
		Data: chartData{
			Labels: labels,
			Datasets: []chartDataset{
				{Label: "收縮壓", Data: systolic, BorderColor: "#E74C3C", YAxisID: bpAxisID, SpanGaps: true},
				{Label: "舒張壓", Data: diastolic, BorderColor: "#3498DB", YAxisID: bpAxisID, SpanGaps: true},
				{Label: "體溫", Data: temperature, BorderColor: "#F39C12", YAxisID: tempAxisID, SpanGaps: true},
			},
		},
		Options: chartOptions{
			Title: chartTitle{Display: true, Text: "近期生命徵象"},
			Scales: chartScales{
				YAxes: []chartAxis{
					{
						ID:         bpAxisID,
						Position:   "left",
						Ticks:      chartTicks{Min: BPAxisMin, Max: BPAxisMax},
						ScaleLabel: chartScaleLabel{Display: true, LabelString: "mmHg"},
					},
					{
						ID:         tempAxisID,
						Position:   "right",
						Ticks:      chartTicks{Min: TempAxisMin, Max: TempAxisMax},
						ScaleLabel: chartScaleLabel{Display: true, LabelString: "°C"},
					},
				},
			},
		},
	}
}
