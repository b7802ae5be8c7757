package usecases

import (
	"context"
	"fmt"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/integration/line"
	"github.com/rs/zerolog/log"
)

// Actions accepted by Dispatch
const (
	ActionSendMessage      = "sendMessage"
	ActionSendTextReport   = "sendTextReport"
	ActionSendHealthReport = "sendHealthReport"
	ActionSendFlexReport   = "sendFlexReport"
	ActionSendHealthAlert  = "sendHealthAlert"
	ActionBatchNotify      = "batchNotify"
)

var reportModes = map[string]ReportMode{
	ActionSendTextReport:   ModeText,
	ActionSendHealthReport: ModeChart,
	ActionSendFlexReport:   ModeCard,
}

// NotifyRequest is the body of the notification endpoint. Requests without
// an action but with events are LINE webhook deliveries.
type NotifyRequest struct {
	Action     string                  `json:"action"`
	UserID     string                  `json:"userId"`
	Message    string                  `json:"message"`
	ElderName  string                  `json:"elderName"`
	Records    []entities.HealthRecord `json:"records"`
	HealthData *entities.HealthRecord  `json:"healthData"`
	Force      bool                    `json:"force"`
	Events     []line.Event            `json:"events"`
}

// NotifyResult is the outcome reported back to the caller
type NotifyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Dispatch validates the request, renders what the action asks for and pushes it.
// Validation errors are returned before any external call.
func (uc *ReportUseCase) Dispatch(ctx context.Context, req NotifyRequest) (*NotifyResult, error) {
	if req.Action == "" && req.Events != nil {
		return uc.HandleEvents(ctx, req.Events)
	}

	switch req.Action {
	case "":
		return nil, entities.Missing("action")

	case ActionSendMessage:
		if req.UserID == "" {
			return nil, entities.Missing("userId")
		}
		if req.Message == "" {
			return nil, entities.Missing("message")
		}
		if err := uc.push(ctx, "", req.UserID, req.Action, []entities.Message{entities.NewTextMessage(req.Message)}); err != nil {
			return nil, err
		}
		return &NotifyResult{Success: true, Message: "message sent"}, nil

	case ActionSendTextReport, ActionSendHealthReport, ActionSendFlexReport:
		if err := requireReportFields(req); err != nil {
			return nil, err
		}
		if len(req.Records) == 0 {
			return nil, entities.Missing("records")
		}
		msgs := uc.RenderReport(reportModes[req.Action], req.ElderName, req.Records)
		if err := uc.push(ctx, req.ElderName, req.UserID, req.Action, msgs); err != nil {
			return nil, err
		}
		return &NotifyResult{Success: true, Message: fmt.Sprintf("report sent (%d messages)", len(msgs))}, nil

	case ActionSendHealthAlert:
		if err := requireReportFields(req); err != nil {
			return nil, err
		}
		if req.HealthData == nil {
			return nil, entities.Missing("healthData")
		}
		text, abnormal := uc.renderer.Alert(req.ElderName, *req.HealthData)
		if !abnormal {
			return &NotifyResult{Success: true, Message: "normal reading"}, nil
		}
		if err := uc.push(ctx, req.ElderName, req.UserID, req.Action, []entities.Message{entities.NewTextMessage(text)}); err != nil {
			return nil, err
		}
		return &NotifyResult{Success: true, Message: "alert sent"}, nil

	case ActionBatchNotify:
		result, err := uc.RunBatch(ctx, req.Force)
		if err != nil {
			return nil, err
		}
		return &NotifyResult{
			Success: true,
			Message: fmt.Sprintf("batch finished: %d sent, %d skipped, %d failed", result.Sent, result.Skipped, len(result.Errors)),
			Data:    result,
		}, nil

	default:
		return nil, &entities.ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

func requireReportFields(req NotifyRequest) error {
	if req.UserID == "" {
		return entities.Missing("userId")
	}
	if req.ElderName == "" {
		return entities.Missing("elderName")
	}
	return nil
}

// HandleEvents answers LINE webhook events. Failures are logged per event.
func (uc *ReportUseCase) HandleEvents(ctx context.Context, events []line.Event) (*NotifyResult, error) {
	handled := 0
	for _, ev := range events {
		var msgs []entities.Message
		switch {
		case ev.Type == line.EventTypeFollow:
			msgs = []entities.Message{entities.NewTextMessage(fmt.Sprintf(
				"感謝您加入日照中心的通知服務！\n您的使用者 ID：%s\n請將此 ID 提供給中心人員，完成長輩健康報告的綁定。",
				ev.Source.UserID))}
		case ev.IsText():
			answer, err := uc.HandleQuery(ctx, ev.Message.Text, ModeCard)
			if err != nil {
				log.Error().Err(err).Str("user", ev.Source.UserID).Msg("Failed to answer chat message")
				continue
			}
			msgs = answer
		default:
			log.Debug().Str("type", ev.Type).Msg("Ignoring webhook event")
			continue
		}

		if uc.replier == nil || ev.ReplyToken == "" {
			log.Warn().Str("type", ev.Type).Msg("Cannot reply to webhook event")
			continue
		}
		if err := uc.replier.Reply(ctx, ev.ReplyToken, truncate(msgs)); err != nil {
			log.Error().Err(err).Str("type", ev.Type).Msg("Failed to reply to webhook event")
			continue
		}
		handled++
	}
	return &NotifyResult{Success: true, Message: fmt.Sprintf("handled %d of %d events", handled, len(events))}, nil
}
