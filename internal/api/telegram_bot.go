package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/integration/telegram"
	"github.com/carelog/daycare-bot/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

const telegramHelp = "可用指令：\n" +
	"/start - 開始使用並取得聊天 ID\n" +
	"/elders - 顯示長輩名單\n" +
	"/report [姓名] - 查詢長輩近期健康報告\n" +
	"/help - 顯示此說明\n\n" +
	"也可以直接輸入長輩姓名查詢。"

// TelegramBot answers staff and family questions over Telegram
type TelegramBot struct {
	bot       *tgbotapi.BotAPI
	messenger *telegram.Messenger
	reports   *usecases.ReportUseCase
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(bot *tgbotapi.BotAPI, reports *usecases.ReportUseCase) *TelegramBot {
	return &TelegramBot{
		bot:       bot,
		messenger: telegram.NewMessenger(bot),
		reports:   reports,
	}
}

// Start listens for updates until ctx is cancelled
func (t *TelegramBot) Start(ctx context.Context) {
	log.Info().Str("account", t.bot.Self.UserName).Msg("Authorized on Telegram")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)
	log.Info().Msg("Bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			log.Info().Msg("Bot stopped")
			return
		case update, open := <-updates:
			if !open {
				return
			}
			if update.Message == nil {
				continue
			}

			chatID := update.Message.Chat.ID
			log.Debug().Int64("chat_id", chatID).Str("text", update.Message.Text).Msg("Received message")

			reply := t.handleMessage(ctx, update.Message)
			if err := t.messenger.Push(ctx, strconv.FormatInt(chatID, 10), reply); err != nil {
				log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
			}
		}
	}
}

// handleMessage builds the reply to one incoming message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) []entities.Message {
	if !message.IsCommand() {
		return t.answer(ctx, message.Text)
	}

	switch message.Command() {
	case "start":
		return textReply(fmt.Sprintf(
			"歡迎使用日照中心健康報告機器人！\n您的聊天 ID：%d\n請將此 ID 提供給中心人員完成綁定，或輸入 /help 查看指令。",
			message.Chat.ID))

	case "help":
		return textReply(telegramHelp)

	case "elders":
		return t.eldersReply(ctx)

	case "report":
		name := strings.TrimSpace(message.CommandArguments())
		if name == "" {
			return textReply("請指定長輩姓名，例如：/report 王奶奶")
		}
		msgs, err := t.reports.ReportForElder(ctx, name, usecases.ModeChart)
		if errors.Is(err, usecases.ErrNotFound) {
			return textReply(fmt.Sprintf("找不到長輩「%s」，請輸入 /elders 查看名單。", name))
		}
		if err != nil {
			log.Error().Err(err).Str("elder", name).Msg("Failed to build report")
			return textReply("讀取健康資料時發生錯誤，請稍後再試。")
		}
		return msgs

	default:
		return textReply("無法辨識的指令，請輸入 /help 查看可用指令。")
	}
}

func (t *TelegramBot) answer(ctx context.Context, text string) []entities.Message {
	msgs, err := t.reports.HandleQuery(ctx, text, usecases.ModeChart)
	if err != nil {
		log.Error().Err(err).Msg("Failed to answer query")
		return textReply("讀取健康資料時發生錯誤，請稍後再試。")
	}
	return msgs
}

func (t *TelegramBot) eldersReply(ctx context.Context) []entities.Message {
	elders, err := t.reports.ListElders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list elders")
		return textReply("讀取長輩名單時發生錯誤，請稍後再試。")
	}
	if len(elders) == 0 {
		return textReply("目前沒有長輩資料。")
	}

	var b strings.Builder
	b.WriteString("長輩名單：\n\n")
	for _, e := range elders {
		b.WriteString("• " + e.Name + "\n")
	}
	b.WriteString("\n輸入 /report [姓名] 查詢健康報告。")
	return textReply(b.String())
}

func textReply(text string) []entities.Message {
	return []entities.Message{entities.NewTextMessage(text)}
}
