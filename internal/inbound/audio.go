package inbound

import (
	"context"
	"log/slog"
)

// AudioHandler acknowledges voice messages. Speech recognition is not
// wired up yet, so the user is asked to type instead.
// TODO: transcribe through the open platform speech-to-text API and
// feed the result into the text flow.
type AudioHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewAudioHandler(notifier Notifier, logger *slog.Logger) *AudioHandler {
	return &AudioHandler{
		notifier: notifier,
		logger:   logger.With(slog.String("service", "audio")),
	}
}

func (h *AudioHandler) Handle(ctx context.Context, msg Message) error {
	h.logger.Info("audio message received",
		slog.String("open_id", msg.SenderOpenID),
		slog.String("message_id", msg.MessageID))

	return h.notifier.SendText(ctx, msg.SenderOpenID,
		"语音消息已收到，语音识别功能开发中。可以先用文字告诉我今天发生了什么吗？")
}
