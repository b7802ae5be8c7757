// Package report renders aggregated health statistics into chat messages
package report

import (
	"math/rand"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
)

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// greetings opens every plain-text report
var greetings = []string{
	"您好！這是來自日照中心的關心 🌱",
	"早安！祝您有美好的一天 ☀️",
	"您好～感謝您一直以來的支持 🙏",
	"平安喜樂！以下是長輩近期的健康狀況 💐",
	"您好！長輩在中心一切都好，請放心 😊",
}

// Renderer turns records and their statistics into messages. It never does I/O.
type Renderer struct {
	chart  ChartOptions
	picker Picker
}

// NewRenderer creates a renderer. A nil picker falls back to a time-seeded source.
func NewRenderer(chart ChartOptions, picker Picker) *Renderer {
	if picker == nil {
		picker = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if chart.BaseURL == "" {
		chart.BaseURL = DefaultChartBaseURL
	}
	if chart.Width <= 0 {
		chart.Width = defaultChartWidth
	}
	if chart.Height <= 0 {
		chart.Height = defaultChartHeight
	}
	return &Renderer{chart: chart, picker: picker}
}

func (r *Renderer) greeting() string {
	return greetings[r.picker.Intn(len(greetings))]
}

// Greetings returns a copy of the greeting pool
func Greetings() []string {
	out := make([]string, len(greetings))
	copy(out, greetings)
	return out
}

// displayDate formats a date the way families read it, e.g. 2024/12/01
func displayDate(t time.Time) string {
	return t.Format("2006/01/02")
}

// TextMessage renders the plain-text report as a message
func (r *Renderer) TextMessage(elderName string, stats entities.AggregateStats) entities.Message {
	return entities.NewTextMessage(r.Text(elderName, stats))
}

// ChartMessage renders the chart as an image message
func (r *Renderer) ChartMessage(records []entities.HealthRecord) entities.Message {
	return entities.NewImageMessage(r.ChartURL(records))
}

// CardMessage renders the structured card as a message
func (r *Renderer) CardMessage(elderName string, stats entities.AggregateStats) entities.Message {
	return entities.NewCardMessage(elderName+" 的健康報告", r.Card(elderName, stats))
}
