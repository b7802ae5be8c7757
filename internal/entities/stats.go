package entities

import "time"

// Trend is a coarse direction signal derived from systolic readings
type Trend string

const (
	TrendRising           Trend = "rising"
	TrendFalling          Trend = "falling"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient-data"
)

// AggregateStats is a read-only snapshot computed from a list of health records
type AggregateStats struct {
	AverageSystolic    int           `json:"averageSystolic"`
	AverageDiastolic   int           `json:"averageDiastolic"`
	AverageTemperature float64       `json:"averageTemperature"`
	MaxBPRecord        *HealthRecord `json:"maxBPRecord,omitempty"`
	MinBPRecord        *HealthRecord `json:"minBPRecord,omitempty"`
	HighBPCount        int           `json:"highBPCount"`
	LowBPCount         int           `json:"lowBPCount"`
	FeverCount         int           `json:"feverCount"`
	NormalCount        int           `json:"normalCount"`
	Trend              Trend         `json:"trend"`

	TotalCount       int           `json:"totalCount"`
	BPCount          int           `json:"bpCount"`
	TemperatureCount int           `json:"temperatureCount"`
	FirstDate        time.Time     `json:"firstDate"`
	LastDate         time.Time     `json:"lastDate"`
	Latest           *HealthRecord `json:"latest,omitempty"`
}

// AnomalyCount sums every abnormal reading the aggregator counted
func (s AggregateStats) AnomalyCount() int {
	return s.HighBPCount + s.LowBPCount + s.FeverCount
}
