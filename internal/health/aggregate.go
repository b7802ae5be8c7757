package health

import (
	"math"
	"sort"

	"github.com/carelog/daycare-bot/internal/entities"
)

// ChartWindow is the number of most recent records kept for chart series
const ChartWindow = 14

const (
	trendWindow    = 3
	trendThreshold = 5.0
)

// SortRecords returns a copy of records ordered by date, then clock string.
// The sort is stable so equal keys keep their input order.
func SortRecords(records []entities.HealthRecord) []entities.HealthRecord {
	sorted := make([]entities.HealthRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

// RecentRecords returns at most n of the latest records in ascending order
func RecentRecords(records []entities.HealthRecord, n int) []entities.HealthRecord {
	sorted := SortRecords(records)
	if n > 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}

// Aggregate computes report statistics over records.
// The input slice is not modified.
func Aggregate(records []entities.HealthRecord) entities.AggregateStats {
	sorted := SortRecords(records)

	stats := entities.AggregateStats{
		TotalCount: len(sorted),
		Trend:      entities.TrendInsufficientData,
	}
	if len(sorted) == 0 {
		return stats
	}

	stats.FirstDate = sorted[0].Date
	stats.LastDate = sorted[len(sorted)-1].Date
	latest := sorted[len(sorted)-1]
	stats.Latest = &latest

	var (
		bp             []entities.HealthRecord
		sumSys, sumDia int
		sumTemp        float64
	)
	maxIdx, minIdx := -1, -1

	for _, r := range sorted {
		if r.HasTemperature() {
			stats.TemperatureCount++
			sumTemp += *r.Temperature
			if IsFever(ClassifyTemp(*r.Temperature)) {
				stats.FeverCount++
			}
		}

		if !r.HasBloodPressure() {
			continue
		}
		bp = append(bp, r)
		sumSys += *r.Systolic
		sumDia += *r.Diastolic

		switch ClassifyBP(*r.Systolic, *r.Diastolic) {
		case CategoryHigh:
			stats.HighBPCount++
		case CategoryLow:
			stats.LowBPCount++
		}

		i := len(bp) - 1
		if maxIdx < 0 || *r.Systolic > *bp[maxIdx].Systolic {
			maxIdx = i
		}
		if minIdx < 0 || *r.Systolic < *bp[minIdx].Systolic {
			minIdx = i
		}
	}

	stats.BPCount = len(bp)
	if stats.BPCount > 0 {
		stats.AverageSystolic = int(math.Round(float64(sumSys) / float64(stats.BPCount)))
		stats.AverageDiastolic = int(math.Round(float64(sumDia) / float64(stats.BPCount)))
		maxRec, minRec := bp[maxIdx], bp[minIdx]
		stats.MaxBPRecord = &maxRec
		stats.MinBPRecord = &minRec
	}
	if stats.TemperatureCount > 0 {
		stats.AverageTemperature = math.Round(sumTemp/float64(stats.TemperatureCount)*10) / 10
	}

	stats.NormalCount = stats.BPCount - stats.HighBPCount - stats.LowBPCount
	stats.Trend = systolicTrend(bp)

	return stats
}

// systolicTrend compares the mean systolic of the newest and oldest readings.
// bp must be sorted ascending and contain only BP-valid records.
func systolicTrend(bp []entities.HealthRecord) entities.Trend {
	if len(bp) < trendWindow {
		return entities.TrendInsufficientData
	}

	diff := meanSystolic(bp[len(bp)-trendWindow:]) - meanSystolic(bp[:trendWindow])
	switch {
	case diff > trendThreshold:
		return entities.TrendRising
	case diff < -trendThreshold:
		return entities.TrendFalling
	default:
		return entities.TrendStable
	}
}

func meanSystolic(records []entities.HealthRecord) float64 {
	sum := 0
	for _, r := range records {
		sum += *r.Systolic
	}
	return float64(sum) / float64(len(records))
}
