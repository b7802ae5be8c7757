package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/health"
	"github.com/carelog/daycare-bot/internal/integration/line"
	"github.com/carelog/daycare-bot/internal/integration/openai"
	"github.com/carelog/daycare-bot/internal/report"
	"github.com/carelog/daycare-bot/internal/repository"
	"github.com/rs/zerolog/log"
)

// Messenger pushes messages to a family contact
type Messenger interface {
	Push(ctx context.Context, to string, msgs []entities.Message) error
}

// Replier answers an inbound chat event
type Replier interface {
	Reply(ctx context.Context, replyToken string, msgs []entities.Message) error
}

// HealthDataSource provides the elder roster and their measurements
type HealthDataSource interface {
	ListElders(ctx context.Context) ([]entities.Elder, error)
	FindElder(ctx context.Context, name string) (entities.Elder, bool, error)
	RecentRecords(ctx context.Context, elderName string, since time.Time) ([]entities.HealthRecord, error)
}

// ReportMode selects which renderer outputs are sent
type ReportMode int

const (
	ModeText  ReportMode = iota // text only
	ModeChart                   // text and chart image
	ModeCard                    // card and chart image
)

// BatchOptions controls the scheduled notification run
type BatchOptions struct {
	AnomalyThreshold int
	WindowDays       int
	Location         *time.Location
}

// ReportUseCase renders health reports and delivers them to families
type ReportUseCase struct {
	renderer      *report.Renderer
	messenger     Messenger
	source        HealthDataSource
	notifications repository.NotificationRepository
	replier       Replier
	agent         openai.QueryAgent
	opts          BatchOptions
	now           func() time.Time
}

// NewReportUseCase creates a report use case. source and notifications may be
// nil when only the request-driven actions are used.
func NewReportUseCase(renderer *report.Renderer, messenger Messenger, source HealthDataSource, notifications repository.NotificationRepository, opts BatchOptions) *ReportUseCase {
	if opts.AnomalyThreshold <= 0 {
		opts.AnomalyThreshold = 3
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ReportUseCase{
		renderer:      renderer,
		messenger:     messenger,
		source:        source,
		notifications: notifications,
		opts:          opts,
		now:           time.Now,
	}
}

// WithReplier enables answering webhook events
func (uc *ReportUseCase) WithReplier(r Replier) *ReportUseCase {
	uc.replier = r
	return uc
}

// WithAgent enables free-text query interpretation
func (uc *ReportUseCase) WithAgent(a openai.QueryAgent) *ReportUseCase {
	uc.agent = a
	return uc
}

// WithClock replaces the wall clock used by the batch
func (uc *ReportUseCase) WithClock(now func() time.Time) *ReportUseCase {
	uc.now = now
	return uc
}

// RenderReport builds the messages for one elder in the given mode.
// The result never exceeds line.MaxMessages.
func (uc *ReportUseCase) RenderReport(mode ReportMode, elderName string, records []entities.HealthRecord) []entities.Message {
	stats := health.Aggregate(records)

	var msgs []entities.Message
	switch mode {
	case ModeCard:
		msgs = append(msgs, uc.renderer.CardMessage(elderName, stats))
	default:
		msgs = append(msgs, uc.renderer.TextMessage(elderName, stats))
	}
	if mode != ModeText && stats.TotalCount > 0 {
		msgs = append(msgs, uc.renderer.ChartMessage(records))
	}
	return truncate(msgs)
}

func truncate(msgs []entities.Message) []entities.Message {
	if len(msgs) > line.MaxMessages {
		return msgs[:line.MaxMessages]
	}
	return msgs
}

// push sends msgs and writes the outcome to the notification log
func (uc *ReportUseCase) push(ctx context.Context, elderName, target, action string, msgs []entities.Message) error {
	err := uc.messenger.Push(ctx, target, truncate(msgs))

	if uc.notifications != nil {
		entry := &entities.NotificationLog{
			ElderName: elderName,
			Target:    target,
			Action:    action,
			Success:   err == nil,
			SentAt:    uc.now(),
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if logErr := uc.notifications.SaveNotification(ctx, entry); logErr != nil {
			log.Error().Err(logErr).Str("elder", elderName).Msg("Failed to write notification log")
		}
	}

	if err != nil {
		log.Error().Err(err).Str("elder", elderName).Str("action", action).Msg("Push failed")
		return err
	}
	log.Info().Str("elder", elderName).Str("action", action).Int("messages", len(msgs)).Msg("Push delivered")
	return nil
}

// ListElders returns the roster from the health source
func (uc *ReportUseCase) ListElders(ctx context.Context) ([]entities.Elder, error) {
	if uc.source == nil {
		return nil, errors.New("no health data source configured")
	}
	return uc.source.ListElders(ctx)
}

// ElderHealth is an elder's recent records with their statistics
type ElderHealth struct {
	ElderName string                  `json:"elderName"`
	Since     string                  `json:"since"`
	Stats     entities.AggregateStats `json:"stats"`
	Records   []entities.HealthRecord `json:"records"`
}

// GetElderHealth loads and aggregates an elder's records for the last days days.
// days <= 0 uses the configured window. Unknown names return ErrNotFound.
func (uc *ReportUseCase) GetElderHealth(ctx context.Context, elderName string, days int) (*ElderHealth, error) {
	if elderName == "" {
		return nil, entities.Missing("elderName")
	}
	if uc.source == nil {
		return nil, errors.New("no health data source configured")
	}
	if days <= 0 {
		days = uc.opts.WindowDays
	}

	_, found, err := uc.source.FindElder(ctx, elderName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	since := uc.now().In(uc.opts.Location).AddDate(0, 0, -days)
	records, err := uc.source.RecentRecords(ctx, elderName, since)
	if err != nil {
		return nil, err
	}
	sorted := health.SortRecords(records)
	if sorted == nil {
		sorted = []entities.HealthRecord{}
	}
	return &ElderHealth{
		ElderName: elderName,
		Since:     since.Format(entities.DateLayout),
		Stats:     health.Aggregate(records),
		Records:   sorted,
	}, nil
}

// ReportForElder renders the report of one elder's recent records
func (uc *ReportUseCase) ReportForElder(ctx context.Context, elderName string, mode ReportMode) ([]entities.Message, error) {
	h, err := uc.GetElderHealth(ctx, elderName, 0)
	if err != nil {
		return nil, err
	}
	if len(h.Records) == 0 {
		return []entities.Message{
			entities.NewTextMessage(fmt.Sprintf("目前沒有 %s 最近 %d 天的健康紀錄。", elderName, uc.opts.WindowDays)),
		}, nil
	}
	return uc.RenderReport(mode, elderName, h.Records), nil
}

// helpText is the fallback answer to unrecognized chat messages
const helpText = "您好！請輸入長輩姓名查詢近期健康報告，例如：王奶奶"

// HandleQuery answers a free-text chat message from a family member.
// An exact elder name in the text wins; otherwise the query agent decides.
func (uc *ReportUseCase) HandleQuery(ctx context.Context, text string, mode ReportMode) ([]entities.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []entities.Message{entities.NewTextMessage(helpText)}, nil
	}

	elders, err := uc.ListElders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching elders for query")
		return []entities.Message{entities.NewTextMessage("目前無法取得長輩名單，請稍後再試。")}, nil
	}
	names := make([]string, 0, len(elders))
	for _, e := range elders {
		names = append(names, e.Name)
	}

	if name := MatchElderName(text, names); name != "" {
		return uc.ReportForElder(ctx, name, mode)
	}

	if uc.agent == nil {
		return []entities.Message{entities.NewTextMessage(helpText)}, nil
	}

	agentResp, err := uc.agent.InterpretUserQuery(ctx, text, names)
	if err != nil {
		log.Error().Err(err).Msg("Error interpreting user query via OpenAI")
		return []entities.Message{entities.NewTextMessage(helpText)}, nil
	}

	switch agentResp.CommandName {
	case openai.CommandHealthReport:
		if name := MatchElderName(agentResp.ElderName, names); name != "" {
			msgs, err := uc.ReportForElder(ctx, name, mode)
			if err != nil {
				return nil, err
			}
			if agentResp.UserMessage != "" {
				msgs = truncate(append([]entities.Message{entities.NewTextMessage(agentResp.UserMessage)}, msgs...))
			}
			return msgs, nil
		}
		log.Debug().Str("elder", agentResp.ElderName).Msg("Agent named no known elder")
	case openai.CommandGeneralQuery:
	default:
		log.Warn().Str("command", agentResp.CommandName).Msg("Agent returned unexpected command")
		return []entities.Message{entities.NewTextMessage(helpText)}, nil
	}

	if agentResp.UserMessage == "" {
		return []entities.Message{entities.NewTextMessage(helpText)}, nil
	}
	return []entities.Message{entities.NewTextMessage(agentResp.UserMessage)}, nil
}

// MatchElderName returns the longest known name contained in text, or ""
func MatchElderName(text string, names []string) string {
	best := ""
	for _, n := range names {
		if n != "" && strings.Contains(text, n) && len(n) > len(best) {
			best = n
		}
	}
	return best
}
