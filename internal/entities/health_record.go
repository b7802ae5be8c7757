// Package entities contains the core domain objects for the day-care bot
package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format used on the wire
const DateLayout = "2006-01-02"

// dateLayouts lists the accepted date formats, spreadsheet exports use slashes
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	time.RFC3339,
}

// HealthRecord is a single vital-sign measurement taken at the center
type HealthRecord struct {
	Date        time.Time // Calendar date of the measurement
	Time        string    // Optional clock string, e.g. "09:30"
	Systolic    *int      // mmHg, nil when not measured
	Diastolic   *int      // mmHg, nil when not measured
	Temperature *float64  // °C, nil when not measured
}

// HasBloodPressure reports whether both halves of the BP pair are present
func (r HealthRecord) HasBloodPressure() bool {
	return r.Systolic != nil && r.Diastolic != nil && *r.Systolic > 0 && *r.Diastolic > 0
}

// HasTemperature reports whether a usable temperature is present
func (r HealthRecord) HasTemperature() bool {
	return r.Temperature != nil && !math.IsNaN(*r.Temperature) && !math.IsInf(*r.Temperature, 0)
}

// DateString formats the record date as YYYY-MM-DD
func (r HealthRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

type healthRecordJSON struct {
	Date        string          `json:"date"`
	Time        string          `json:"time,omitempty"`
	Systolic    json.RawMessage `json:"systolic,omitempty"`
	Diastolic   json.RawMessage `json:"diastolic,omitempty"`
	Temperature json.RawMessage `json:"temperature,omitempty"`
}

// MarshalJSON writes the record with a plain date and omits absent vitals
func (r HealthRecord) MarshalJSON() ([]byte, error) {
	out := struct {
		Date        string   `json:"date"`
		Time        string   `json:"time,omitempty"`
		Systolic    *int     `json:"systolic,omitempty"`
		Diastolic   *int     `json:"diastolic,omitempty"`
		Temperature *float64 `json:"temperature,omitempty"`
	}{
		Date:        r.DateString(),
		Time:        r.Time,
		Systolic:    r.Systolic,
		Diastolic:   r.Diastolic,
		Temperature: r.Temperature,
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts vitals as numbers or numeric strings
func (r *HealthRecord) UnmarshalJSON(data []byte) error {
	var raw healthRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec, err := ParseHealthRecord(raw.Date, raw.Time, rawText(raw.Systolic), rawText(raw.Diastolic), rawText(raw.Temperature))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// rawText unquotes a JSON string or returns a JSON number literal as text
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

// ParseHealthRecord builds a record from text fields as found in requests and sheet rows.
// Blank vitals are treated as absent. Errors are *ValidationError naming the bad field.
func ParseHealthRecord(date, clock, systolic, diastolic, temperature string) (HealthRecord, error) {
	if strings.TrimSpace(date) == "" {
		return HealthRecord{}, Missing("date")
	}
	d, err := ParseDate(date)
	if err != nil {
		return HealthRecord{}, &ValidationError{Field: "date", Message: fmt.Sprintf("unrecognized date %q", date)}
	}

	rec := HealthRecord{
		Date: d,
		Time: strings.TrimSpace(clock),
	}

	if rec.Systolic, err = ParseOptionalInt(systolic); err != nil {
		return HealthRecord{}, invalidNumber("systolic", systolic)
	}
	if rec.Diastolic, err = ParseOptionalInt(diastolic); err != nil {
		return HealthRecord{}, invalidNumber("diastolic", diastolic)
	}
	if rec.Temperature, err = ParseOptionalFloat(temperature); err != nil {
		return HealthRecord{}, invalidNumber("temperature", temperature)
	}

	return rec, nil
}

func invalidNumber(field, value string) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("not a number: %q", value)}
}

// ParseDate parses a calendar date in any of the accepted layouts
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseOptionalInt returns nil for blank input.
// Decimal input such as "120.0" is accepted and truncated.
func ParseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("not a finite number")
	}
	v := int(f)
	return &v, nil
}

// ParseOptionalFloat returns nil for blank input
func ParseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Elder is a day-care member whose family may receive reports
type Elder struct {
	Name            string `json:"name"`
	FamilyContactID string `json:"familyContactId,omitempty"`
}

// HasContact reports whether the elder's family can be messaged
func (e Elder) HasContact() bool {
	return strings.TrimSpace(e.FamilyContactID) != ""
}
