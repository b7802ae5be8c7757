package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/health"
	"github.com/rs/zerolog/log"
)

// BatchError is one elder's failure inside a batch run
type BatchError struct {
	ElderName string `json:"elderName"`
	Error     string `json:"error"`
}

// BatchResult summarizes a batch run
type BatchResult struct {
	Checked int          `json:"checked"`
	Sent    int          `json:"sent"`
	Skipped int          `json:"skipped"`
	Errors  []BatchError `json:"errors"`
}

// IsDue decides whether a scheduled report goes out on day.
// Reports go out on the 1st, on the 15th when anomalies reach threshold,
// or whenever forced.
func IsDue(day time.Time, anomalies, threshold int, force bool) bool {
	switch {
	case force:
		return true
	case day.Day() == 1:
		return true
	case day.Day() == 15 && anomalies >= threshold:
		return true
	default:
		return false
	}
}

// RunBatch walks every elder with a family contact and sends the card report
// when due. Per-elder failures are collected and never stop the loop.
func (uc *ReportUseCase) RunBatch(ctx context.Context, force bool) (*BatchResult, error) {
	if uc.source == nil {
		return nil, errors.New("no health data source configured")
	}

	elders, err := uc.source.ListElders(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.now().In(uc.opts.Location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, uc.opts.Location)
	since := dayStart.AddDate(0, 0, -uc.opts.WindowDays)

	log.Info().
		Int("elders", len(elders)).
		Bool("force", force).
		Str("day", now.Format(entities.DateLayout)).
		Msg("Starting batch notification")

	result := &BatchResult{Errors: []BatchError{}}
	fail := func(name string, err error) {
		log.Error().Err(err).Str("elder", name).Msg("Batch item failed")
		result.Errors = append(result.Errors, BatchError{ElderName: name, Error: err.Error()})
	}

	for _, elder := range elders {
		if !elder.HasContact() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		if !force && uc.notifications != nil {
			sent, err := uc.notifications.HasSuccessfulNotificationSince(ctx, elder.Name, dayStart)
			if err != nil {
				fail(elder.Name, err)
				continue
			}
			if sent {
				log.Debug().Str("elder", elder.Name).Msg("Already notified today")
				result.Skipped++
				continue
			}
		}

		records, err := uc.source.RecentRecords(ctx, elder.Name, since)
		if err != nil {
			fail(elder.Name, err)
			continue
		}

		stats := health.Aggregate(records)
		if stats.TotalCount == 0 || !IsDue(now, stats.AnomalyCount(), uc.opts.AnomalyThreshold, force) {
			result.Skipped++
			continue
		}

		msgs := uc.RenderReport(ModeCard, elder.Name, records)
		if err := uc.push(ctx, elder.Name, elder.FamilyContactID, ActionBatchNotify, msgs); err != nil {
			fail(elder.Name, err)
			continue
		}
		result.Sent++
	}

	log.Info().
		Int("checked", result.Checked).
		Int("sent", result.Sent).
		Int("skipped", result.Skipped).
		Int("failed", len(result.Errors)).
		Msg("Batch notification finished")
	return result, nil
}
