// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = repository.ErrNotFound

// CareRecordInput carries the client-editable fields of a record
type CareRecordInput struct {
	Date         string   `json:"date"`
	Title        string   `json:"title"`
	ElderName    string   `json:"elderName"`
	Participants []string `json:"participants"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	Status       string   `json:"status"`
}

// CareRecordUseCase manages the activity, meeting and plan logbooks
type CareRecordUseCase struct {
	repo  repository.CareRecordRepository
	now   func() time.Time
	newID func() string
}

// NewCareRecordUseCase creates a new care record use case
func NewCareRecordUseCase(repo repository.CareRecordRepository) *CareRecordUseCase {
	return &CareRecordUseCase{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (uc *CareRecordUseCase) validate(kind entities.RecordKind, in CareRecordInput) (CareRecordInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, entities.Missing("title")
	}

	if strings.TrimSpace(in.Date) == "" {
		return in, entities.Missing("date")
	}
	date, err := entities.ParseDate(in.Date)
	if err != nil {
		return in, &entities.ValidationError{Field: "date", Message: "expected YYYY-MM-DD"}
	}
	in.Date = date.Format(entities.DateLayout)

	switch {
	case kind == entities.KindPlan && in.Status == "":
		in.Status = entities.PlanDraft
	case kind == entities.KindPlan:
		switch in.Status {
		case entities.PlanDraft, entities.PlanActive, entities.PlanDone:
		default:
			return in, &entities.ValidationError{Field: "status", Message: "must be draft, active or done"}
		}
	case in.Status != "":
		return in, &entities.ValidationError{Field: "status", Message: "only plans have a status"}
	}

	in.Participants = cleanList(in.Participants)
	in.Tags = cleanList(in.Tags)
	return in, nil
}

func cleanList(items []string) []string {
	out := []string{}
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Create validates and stores a new record
func (uc *CareRecordUseCase) Create(ctx context.Context, kind entities.RecordKind, in CareRecordInput) (entities.CareRecord, error) {
	in, err := uc.validate(kind, in)
	if err != nil {
		return entities.CareRecord{}, err
	}

	now := uc.now().UTC()
	rec := entities.CareRecord{
		ID:           uc.newID(),
		Kind:         kind,
		Date:         in.Date,
		Title:        in.Title,
		ElderName:    strings.TrimSpace(in.ElderName),
		Participants: in.Participants,
		Content:      in.Content,
		Tags:         in.Tags,
		Status:       in.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.CreateRecord(ctx, rec); err != nil {
		return entities.CareRecord{}, err
	}

	log.Info().Str("id", rec.ID).Str("kind", string(kind)).Msg("Created care record")
	return rec, nil
}

// Get loads a record by id
func (uc *CareRecordUseCase) Get(ctx context.Context, kind entities.RecordKind, id string) (entities.CareRecord, error) {
	return uc.repo.GetRecord(ctx, kind, id)
}

// List returns records matching the filter
func (uc *CareRecordUseCase) List(ctx context.Context, filter entities.RecordFilter) ([]entities.CareRecord, error) {
	for field, v := range map[string]*string{"from": &filter.From, "to": &filter.To} {
		if *v == "" {
			continue
		}
		d, err := entities.ParseDate(*v)
		if err != nil {
			return nil, &entities.ValidationError{Field: field, Message: "expected YYYY-MM-DD"}
		}
		*v = d.Format(entities.DateLayout)
	}
	if filter.Limit < 0 {
		return nil, &entities.ValidationError{Field: "limit", Message: "must not be negative"}
	}
	return uc.repo.ListRecords(ctx, filter)
}

// Update replaces the editable fields of an existing record
func (uc *CareRecordUseCase) Update(ctx context.Context, kind entities.RecordKind, id string, in CareRecordInput) (entities.CareRecord, error) {
	in, err := uc.validate(kind, in)
	if err != nil {
		return entities.CareRecord{}, err
	}

	rec, err := uc.repo.GetRecord(ctx, kind, id)
	if err != nil {
		return entities.CareRecord{}, err
	}

	rec.Date = in.Date
	rec.Title = in.Title
	rec.ElderName = strings.TrimSpace(in.ElderName)
	rec.Participants = in.Participants
	rec.Content = in.Content
	rec.Tags = in.Tags
	rec.Status = in.Status
	rec.UpdatedAt = uc.now().UTC()

	if err := uc.repo.UpdateRecord(ctx, rec); err != nil {
		return entities.CareRecord{}, err
	}
	return rec, nil
}

// Delete removes a record
func (uc *CareRecordUseCase) Delete(ctx context.Context, kind entities.RecordKind, id string) error {
	if err := uc.repo.DeleteRecord(ctx, kind, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	log.Info().Str("id", id).Str("kind", string(kind)).Msg("Deleted care record")
	return nil
}
