package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/inkwellai/inkwell/internal/session"
)

// Videos past this size usually cannot be previewed inside a document.
const largeVideoMB = 20

// MediaHandler buffers pictures and videos on the session. The bytes
// stay on the platform until diary composition fetches them.
type MediaHandler struct {
	sessions SessionStore
	notifier Notifier
	logger   *slog.Logger
}

func NewMediaHandler(sessions SessionStore, notifier Notifier, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		sessions: sessions,
		notifier: notifier,
		logger:   logger.With(slog.String("service", "media")),
	}
}

func (h *MediaHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.MessageType {
	case "image":
		return h.handleImage(ctx, msg)
	case "media":
		return h.handleVideo(ctx, msg)
	default:
		return fmt.Errorf("unsupported media type: %s", msg.MessageType)
	}
}

func (h *MediaHandler) handleImage(ctx context.Context, msg Message) error {
	var content struct {
		ImageKey string `json:"image_key"`
		FileName string `json:"file_name"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
		return fmt.Errorf("parse image content: %w", err)
	}
	if content.FileName == "" {
		content.FileName = "image.jpg"
	}
	userID := msg.SenderOpenID

	h.logger.Info("image received",
		slog.String("open_id", userID),
		slog.String("file_name", content.FileName),
		slog.String("image_key", content.ImageKey))

	if err := h.sessions.AddMedia(ctx, userID, session.MediaRef{
		Kind:      session.MediaKindImage,
		FileName:  content.FileName,
		AssetKey:  content.ImageKey,
		MessageID: msg.MessageID,
	}); err != nil {
		return err
	}

	if err := h.sessions.AppendMessage(ctx, userID, "user", "[图片: "+content.FileName+"]"); err != nil {
		return err
	}

	reply := "图片已收到，我会在整理日记时保存它。还有其他内容吗？"
	if err := h.notifier.SendText(ctx, userID, reply); err != nil {
		return err
	}
	return h.sessions.AppendMessage(ctx, userID, "assistant", reply)
}

func (h *MediaHandler) handleVideo(ctx context.Context, msg Message) error {
	var content struct {
		FileKey  string `json:"file_key"`
		FileName string `json:"file_name"`
		FileSize int64  `json:"file_size"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
		return fmt.Errorf("parse video content: %w", err)
	}
	if content.FileName == "" {
		content.FileName = "video.mp4"
	}
	userID := msg.SenderOpenID
	sizeMB := float64(content.FileSize) / (1 << 20)

	h.logger.Info("video received",
		slog.String("open_id", userID),
		slog.String("file_name", content.FileName),
		slog.Float64("size_mb", sizeMB))

	if err := h.sessions.AddMedia(ctx, userID, session.MediaRef{
		Kind:      session.MediaKindVideo,
		FileName:  content.FileName,
		AssetKey:  content.FileKey,
		FileSize:  content.FileSize,
		MessageID: msg.MessageID,
	}); err != nil {
		return err
	}

	if err := h.sessions.AppendMessage(ctx, userID, "user",
		fmt.Sprintf("[视频: %s (%.1fMB)]", content.FileName, sizeMB)); err != nil {
		return err
	}

	reply := "视频已收到，我会在整理日记时保存它。还有其他内容吗？"
	if sizeMB > largeVideoMB {
		reply = fmt.Sprintf("视频已收到（%.1fMB）。\n注意：视频较大，我会在整理日记时尝试保存，但可能无法在文档中直接预览。", sizeMB)
	}
	if err := h.notifier.SendText(ctx, userID, reply); err != nil {
		return err
	}
	return h.sessions.AppendMessage(ctx, userID, "assistant", reply)
}
