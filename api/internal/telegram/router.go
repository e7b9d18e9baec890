package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"hazard-identify/api/internal/hazard"
	"hazard-identify/api/internal/ratelimit"
	"hazard-identify/api/internal/util"
)

// maxMessageRunes is Telegram's limit for one text message.
const maxMessageRunes = 4096

// BotAPI is the part of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

type Identifier interface {
	Identify(ctx context.Context, imagePath, hazardContext string) (hazard.Report, error)
}

type Router struct {
	Bot       BotAPI
	Service   Identifier
	UploadDir string
	Limiter   *ratelimit.Limiter
	Log       zerolog.Logger
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}
}

// SendResult отправляет ответ модели, разрезая его на куски по лимиту Telegram.
func (r *Router) SendResult(chatID int64, text string) {
	for _, chunk := range util.SplitRunes(text, maxMessageRunes) {
		r.send(chatID, chunk)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("hazard identification failed")
	r.send(chatID, "处理图片时出错，请稍后再试。")
}

func chatKey(chatID int64) string { return strconv.FormatInt(chatID, 10) }
