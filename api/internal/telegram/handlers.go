package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const startText = "你好，我是小安。发送一张现场照片（可在说明中附上背景信息和需求），我会描述图片中存在的安全生产隐患。"

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}

	if len(msg.Photo) == 0 && !isImageDocument(msg.Document) {
		r.send(cid, "请发送一张图片。")
		return
	}

	if !r.Limiter.Allow(chatKey(cid)) {
		r.send(cid, "请求过于频繁，请稍后再试。")
		return
	}
	if !acquireChat(cid) {
		r.send(cid, "上一张图片还在处理中，请稍候。")
		return
	}
	defer releaseChat(cid)

	r.acceptPhoto(ctx, *msg)
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "未知命令。发送 /start 查看用法。")
	}
}

func isImageDocument(d *tgbotapi.Document) bool {
	return d != nil && strings.HasPrefix(strings.ToLower(d.MimeType), "image/")
}
