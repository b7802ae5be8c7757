// Package health classifies vital signs and aggregates health records into report statistics
package health

import "math"

// Category is the discrete status of a BP pair or a temperature
type Category string

const (
	CategoryUnknown     Category = "unknown"
	CategoryLow         Category = "low"
	CategorySlightlyLow Category = "slightly-low"
	CategoryNormal      Category = "normal"
	CategoryHigh        Category = "high"
	CategoryMildFever   Category = "mild-fever"
	CategoryFever       Category = "fever"
)

// Blood pressure limits in mmHg
const (
	LowSystolic   = 90
	LowDiastolic  = 60
	HighSystolic  = 140
	HighDiastolic = 90
)

// Temperature limits in °C
const (
	LowTemperature       = 35.0
	NormalTemperatureMin = 36.0
	FeverTemperatureMin  = 37.5
	HighFeverAbove       = 38.0
)

type categoryStyle struct {
	color string
	label string
}

var styles = map[Category]categoryStyle{
	CategoryUnknown:     {color: "#999999", label: "無資料"},
	CategoryLow:         {color: "#3498DB", label: "偏低"},
	CategorySlightlyLow: {color: "#5DADE2", label: "略低"},
	CategoryNormal:      {color: "#27AE60", label: "正常"},
	CategoryHigh:        {color: "#E74C3C", label: "偏高"},
	CategoryMildFever:   {color: "#F39C12", label: "微燒"},
	CategoryFever:       {color: "#E67E22", label: "發燒"},
}

// Color returns the display color used in cards
func (c Category) Color() string {
	if s, ok := styles[c]; ok {
		return s.color
	}
	return styles[CategoryUnknown].color
}

// Label returns the short display label
func (c Category) Label() string {
	if s, ok := styles[c]; ok {
		return s.label
	}
	return styles[CategoryUnknown].label
}

// IsAbnormal is true for every known category other than normal
func (c Category) IsAbnormal() bool {
	return c != CategoryNormal && c != CategoryUnknown
}

// ClassifyBP classifies a BP pair. Low is checked before high.
// Non-positive values are treated as missing.
func ClassifyBP(systolic, diastolic int) Category {
	switch {
	case systolic <= 0 || diastolic <= 0:
		return CategoryUnknown
	case systolic < LowSystolic || diastolic < LowDiastolic:
		return CategoryLow
	case systolic >= HighSystolic || diastolic >= HighDiastolic:
		return CategoryHigh
	default:
		return CategoryNormal
	}
}

// ClassifyBloodPressure classifies an optional BP pair
func ClassifyBloodPressure(systolic, diastolic *int) Category {
	if systolic == nil || diastolic == nil {
		return CategoryUnknown
	}
	return ClassifyBP(*systolic, *diastolic)
}

// ClassifyTemp classifies a temperature in °C
func ClassifyTemp(t float64) Category {
	switch {
	case math.IsNaN(t) || math.IsInf(t, 0):
		return CategoryUnknown
	case t < LowTemperature:
		return CategoryLow
	case t < NormalTemperatureMin:
		return CategorySlightlyLow
	case t < FeverTemperatureMin:
		return CategoryNormal
	case t <= HighFeverAbove:
		return CategoryMildFever
	default:
		return CategoryFever
	}
}

// ClassifyTemperature classifies an optional temperature
func ClassifyTemperature(t *float64) Category {
	if t == nil {
		return CategoryUnknown
	}
	return ClassifyTemp(*t)
}

// IsFever is true for mild and full fever
func IsFever(c Category) bool {
	return c == CategoryMildFever || c == CategoryFever
}
