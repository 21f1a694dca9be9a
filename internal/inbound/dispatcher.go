package inbound

import (
	"context"
	"log/slog"
)

const apologyReply = "抱歉，处理消息时出了点问题，请稍后再试。"

// Dispatcher routes inbound messages to their handler and owns the
// outermost error boundary: a failed handler turns into a log entry and
// a best-effort apology, never a crash.
type Dispatcher struct {
	text     Handler
	audio    Handler
	media    Handler
	notifier Notifier
	logger   *slog.Logger
}

func NewDispatcher(text, audio, media Handler, notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		text:     text,
		audio:    audio,
		media:    media,
		notifier: notifier,
		logger:   logger.With(slog.String("service", "inbound")),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	var handler Handler
	switch msg.MessageType {
	case "text":
		handler = d.text
	case "audio":
		handler = d.audio
	case "image", "media":
		handler = d.media
	default:
		d.logger.Info("unsupported message type ignored",
			slog.String("message_type", msg.MessageType),
			slog.String("message_id", msg.MessageID))
		return
	}

	if err := handler.Handle(ctx, msg); err != nil {
		d.logger.Error("message handling failed",
			slog.String("message_type", msg.MessageType),
			slog.String("message_id", msg.MessageID),
			slog.String("open_id", msg.SenderOpenID),
			slog.String("error", err.Error()))
		if msg.SenderOpenID != "" {
			if sendErr := d.notifier.SendText(ctx, msg.SenderOpenID, apologyReply); sendErr != nil {
				d.logger.Error("apology reply failed", slog.String("error", sendErr.Error()))
			}
		}
	}
}
