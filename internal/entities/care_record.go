package entities

import (
	"fmt"
	"time"
)

// RecordKind distinguishes the three logbook record types kept by the center
type RecordKind string

const (
	KindActivity RecordKind = "activity"
	KindMeeting  RecordKind = "meeting"
	KindPlan     RecordKind = "plan"
)

// ParseRecordKind validates a kind name
func ParseRecordKind(s string) (RecordKind, error) {
	switch k := RecordKind(s); k {
	case KindActivity, KindMeeting, KindPlan:
		return k, nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

// Plan statuses
const (
	PlanDraft  = "draft"
	PlanActive = "active"
	PlanDone   = "done"
)

// CareRecord is an activity, meeting or care-plan entry in the center's logbook
type CareRecord struct {
	ID           string     `json:"id"`
	Kind         RecordKind `json:"kind"`
	Date         string     `json:"date"` // YYYY-MM-DD
	Title        string     `json:"title"`
	ElderName    string     `json:"elderName,omitempty"`
	Participants []string   `json:"participants"`
	Content      string     `json:"content"`
	Tags         []string   `json:"tags"`
	Status       string     `json:"status,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RecordFilter narrows a record listing; zero values match everything
type RecordFilter struct {
	Kind      RecordKind
	ElderName string
	From      string // inclusive YYYY-MM-DD
	To        string // inclusive YYYY-MM-DD
	Limit     int
}

// NotificationLog is the outcome of one push attempt to a family contact
type NotificationLog struct {
	ID        int64     `json:"id"`
	ElderName string    `json:"elderName"`
	Target    string    `json:"target"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	SentAt    time.Time `json:"sentAt"`
}
