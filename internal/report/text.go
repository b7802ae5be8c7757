package report

import (
	"fmt"
	"strings"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/health"
)

var trendLabels = map[entities.Trend]string{
	entities.TrendRising:           "上升 ↗",
	entities.TrendFalling:          "下降 ↘",
	entities.TrendStable:           "持平 →",
	entities.TrendInsufficientData: "資料不足",
}

// TrendLabel returns the display text of a trend
func TrendLabel(t entities.Trend) string {
	if label, ok := trendLabels[t]; ok {
		return label
	}
	return trendLabels[entities.TrendInsufficientData]
}

// Text renders the plain-text report.
// Output is deterministic apart from the greeting.
func (r *Renderer) Text(elderName string, stats entities.AggregateStats) string {
	var b strings.Builder

	b.WriteString(r.greeting())
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("📋 %s 的健康紀錄報告\n", elderName))

	if stats.TotalCount == 0 {
		b.WriteString("目前沒有可用的健康紀錄。")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("📅 期間：%s - %s\n", displayDate(stats.FirstDate), displayDate(stats.LastDate)))
	b.WriteString(fmt.Sprintf("📝 紀錄筆數：%d 筆\n", stats.TotalCount))

	if stats.BPCount > 0 {
		b.WriteString(fmt.Sprintf("❤️ 平均血壓：%d/%d mmHg\n", stats.AverageSystolic, stats.AverageDiastolic))
	} else {
		b.WriteString("❤️ 平均血壓：無資料\n")
	}
	if stats.TemperatureCount > 0 {
		b.WriteString(fmt.Sprintf("🌡️ 平均體溫：%.1f°C\n", stats.AverageTemperature))
	} else {
		b.WriteString("🌡️ 平均體溫：無資料\n")
	}
	b.WriteString(fmt.Sprintf("📈 血壓趨勢：%s\n", TrendLabel(stats.Trend)))

	if stats.AnomalyCount() > 0 {
		b.WriteString(fmt.Sprintf("⚠️ 血壓偏高 %d 次、偏低 %d 次、體溫偏高 %d 次\n",
			stats.HighBPCount, stats.LowBPCount, stats.FeverCount))
	}

	if stats.Latest != nil {
		b.WriteString("\n")
		b.WriteString(latestRecordText(*stats.Latest))
	}

	return strings.TrimRight(b.String(), "\n")
}

func latestRecordText(rec entities.HealthRecord) string {
	var b strings.Builder

	when := displayDate(rec.Date)
	if rec.Time != "" {
		when += " " + rec.Time
	}
	b.WriteString(fmt.Sprintf("🕒 最新紀錄（%s）\n", when))

	if rec.HasBloodPressure() {
		cat := health.ClassifyBloodPressure(rec.Systolic, rec.Diastolic)
		b.WriteString(fmt.Sprintf("  血壓 %d/%d mmHg（%s）\n", *rec.Systolic, *rec.Diastolic, cat.Label()))
	}
	if rec.HasTemperature() {
		cat := health.ClassifyTemperature(rec.Temperature)
		b.WriteString(fmt.Sprintf("  體溫 %.1f°C（%s）\n", *rec.Temperature, cat.Label()))
	}
	if !rec.HasBloodPressure() && !rec.HasTemperature() {
		b.WriteString("  本次未量測\n")
	}

	return b.String()
}

// Alert renders a single-reading alert.
// The bool is false when nothing in the reading is abnormal.
func (r *Renderer) Alert(elderName string, rec entities.HealthRecord) (string, bool) {
	bp := health.ClassifyBloodPressure(rec.Systolic, rec.Diastolic)
	temp := health.ClassifyTemperature(rec.Temperature)
	if !bp.IsAbnormal() && !temp.IsAbnormal() {
		return "", false
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ 健康提醒：%s\n", elderName))

	when := displayDate(rec.Date)
	if rec.Time != "" {
		when += " " + rec.Time
	}
	b.WriteString(fmt.Sprintf("量測時間：%s\n", when))

	if bp.IsAbnormal() {
		b.WriteString(fmt.Sprintf("血壓 %d/%d mmHg，%s\n", *rec.Systolic, *rec.Diastolic, bp.Label()))
	}
	if temp.IsAbnormal() {
		b.WriteString(fmt.Sprintf("體溫 %.1f°C，%s\n", *rec.Temperature, temp.Label()))
	}
	b.WriteString("中心護理人員已持續觀察，如有疑問請與我們聯繫。")

	return b.String(), true
}
