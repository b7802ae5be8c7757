package report

import (
	"fmt"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/health"
)

const (
	headerColor = "#1F6F78"
	labelColor  = "#666666"
	textColor   = "#111111"
	mutedColor  = "#AAAAAA"
)

func intPtr(v int) *int { return &v }

func text(s, size, color string) entities.FlexComponent {
	return entities.FlexComponent{Type: "text", Text: s, Size: size, Color: color, Wrap: true}
}

func boldText(s, size, color string) entities.FlexComponent {
	t := text(s, size, color)
	t.Weight = "bold"
	return t
}

func separator() entities.FlexComponent {
	return entities.FlexComponent{Type: "separator", Margin: "md"}
}

// row is a label/value line, the value colored by its category
func row(label, value, color string) entities.FlexComponent {
	l := text(label, "sm", labelColor)
	l.Flex = intPtr(2)
	v := boldText(value, "sm", color)
	v.Flex = intPtr(3)
	v.Align = "end"
	return entities.FlexComponent{
		Type:     "box",
		Layout:   "horizontal",
		Margin:   "sm",
		Contents: []entities.FlexComponent{l, v},
	}
}

func bpValue(rec *entities.HealthRecord) (string, health.Category) {
	if rec == nil || !rec.HasBloodPressure() {
		return "無資料", health.CategoryUnknown
	}
	cat := health.ClassifyBloodPressure(rec.Systolic, rec.Diastolic)
	return fmt.Sprintf("%d/%d（%s）", *rec.Systolic, *rec.Diastolic, displayDate(rec.Date)), cat
}

// Card builds the structured report card.
// Every colored value uses the classifier category of the number it shows.
func (r *Renderer) Card(elderName string, stats entities.AggregateStats) *entities.FlexBubble {
	header := entities.FlexComponent{
		Type:            "box",
		Layout:          "vertical",
		BackgroundColor: headerColor,
		PaddingAll:      "16px",
		Contents: []entities.FlexComponent{
			text("健康紀錄報告", "sm", "#FFFFFF"),
			boldText(elderName, "xl", "#FFFFFF"),
		},
	}

	body := entities.FlexComponent{
		Type:    "box",
		Layout:  "vertical",
		Spacing: "sm",
	}

	if stats.TotalCount == 0 {
		body.Contents = append(body.Contents, text("目前沒有可用的健康紀錄。", "sm", textColor))
	} else {
		body.Contents = append(body.Contents,
			row("期間", fmt.Sprintf("%s - %s", displayDate(stats.FirstDate), displayDate(stats.LastDate)), textColor),
			row("紀錄筆數", fmt.Sprintf("%d 筆", stats.TotalCount), textColor),
			separator(),
		)

		if stats.BPCount > 0 {
			avgCat := health.ClassifyBP(stats.AverageSystolic, stats.AverageDiastolic)
			body.Contents = append(body.Contents,
				row("平均血壓", fmt.Sprintf("%d/%d mmHg", stats.AverageSystolic, stats.AverageDiastolic), avgCat.Color()))
		} else {
			body.Contents = append(body.Contents, row("平均血壓", "無資料", health.CategoryUnknown.Color()))
		}

		if stats.TemperatureCount > 0 {
			tempCat := health.ClassifyTemp(stats.AverageTemperature)
			body.Contents = append(body.Contents,
				row("平均體溫", fmt.Sprintf("%.1f°C", stats.AverageTemperature), tempCat.Color()))
		} else {
			body.Contents = append(body.Contents, row("平均體溫", "無資料", health.CategoryUnknown.Color()))
		}

		maxText, maxCat := bpValue(stats.MaxBPRecord)
		minText, minCat := bpValue(stats.MinBPRecord)
		body.Contents = append(body.Contents,
			row("最高血壓", maxText, maxCat.Color()),
			row("最低血壓", minText, minCat.Color()),
			separator(),
			row("血壓正常", fmt.Sprintf("%d 次", stats.NormalCount), health.CategoryNormal.Color()),
			row("血壓偏高", fmt.Sprintf("%d 次", stats.HighBPCount), countColor(stats.HighBPCount, health.CategoryHigh)),
			row("血壓偏低", fmt.Sprintf("%d 次", stats.LowBPCount), countColor(stats.LowBPCount, health.CategoryLow)),
			row("體溫偏高", fmt.Sprintf("%d 次", stats.FeverCount), countColor(stats.FeverCount, health.CategoryFever)),
			row("血壓趨勢", TrendLabel(stats.Trend), textColor),
		)
	}

	footer := entities.FlexComponent{
		Type:   "box",
		Layout: "vertical",
		Contents: []entities.FlexComponent{
			text("資料來源：日照中心每日量測紀錄", "xs", mutedColor),
		},
	}

	return &entities.FlexBubble{
		Type:   "bubble",
		Header: &header,
		Body:   &body,
		Footer: &footer,
	}
}

// countColor highlights a non-zero anomaly count
func countColor(n int, cat health.Category) string {
	if n == 0 {
		return textColor
	}
	return cat.Color()
}
