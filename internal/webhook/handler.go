package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkwellai/inkwell/internal/diary"
	"github.com/inkwellai/inkwell/internal/feishu"
	"github.com/inkwellai/inkwell/internal/inbound"
)

const maxBodyBytes int64 = 1 << 20 // 1 MiB

type messageDispatcher interface {
	Dispatch(ctx context.Context, msg inbound.Message)
}

type dedupCache interface {
	SeenOrRecord(id string) bool
}

type diaryStore interface {
	ListByDocumentID(ctx context.Context, documentID string) ([]*diary.Diary, error)
	Delete(ctx context.Context, id string) error
}

// Handler receives open platform event callbacks: decrypts the
// envelope, answers URL-verification challenges, drops replays, and
// hands messages to the dispatcher. The platform retries on anything
// but a success ack, so processing failures still ack success.
type Handler struct {
	logger     *slog.Logger
	cipher     *feishu.EventCipher
	dedup      dedupCache
	dispatcher messageDispatcher
	diaries    diaryStore
}

func NewHandler(cipher *feishu.EventCipher, dedup dedupCache, dispatcher messageDispatcher, diaries diaryStore, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger.With(slog.String("handler", "webhook")),
		cipher:     cipher,
		dedup:      dedup,
		dispatcher: dispatcher,
		diaries:    diaries,
	}
}

// Register registers the event callback routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/api/webhook/event", h.HandleProbe)
	e.POST("/api/webhook/event", h.Handle)
}

// HandleProbe responds to health checks on the callback URL.
func (h *Handler) HandleProbe(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// envelope is the outer callback payload, before and after decryption.
type envelope struct {
	Encrypt   string `json:"encrypt"`
	Challenge string `json:"challenge"`
	Header    struct {
		EventType string `json:"event_type"`
	} `json:"header"`
	Event json.RawMessage `json:"event"`
}

func (h *Handler) Handle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(body)) > maxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON")
	}

	if env.Encrypt != "" {
		plaintext, err := h.cipher.Decrypt(env.Encrypt)
		if err != nil {
			// Undecryptable events are dropped, but acked to stop retries.
			h.logger.Error("event decrypt failed", slog.String("error", err.Error()))
			return h.ack(c)
		}
		env = envelope{}
		if err := json.Unmarshal(plaintext, &env); err != nil {
			h.logger.Error("decrypted event parse failed", slog.String("error", err.Error()))
			return h.ack(c)
		}
	}

	// URL verification handshake.
	if env.Challenge != "" {
		h.logger.Info("challenge verification", slog.String("challenge", env.Challenge))
		return c.JSON(http.StatusOK, map[string]string{"challenge": env.Challenge})
	}

	switch env.Header.EventType {
	case "im.message.receive_v1":
		h.handleMessageEvent(c.Request().Context(), env.Event)
	case "drive.file.deleted_completely_v1":
		h.handleFileDeleted(c.Request().Context(), env.Event)
	default:
		if env.Header.EventType != "" {
			h.logger.Info("event type ignored", slog.String("event_type", env.Header.EventType))
		}
	}

	return h.ack(c)
}

func (h *Handler) ack(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"code": 0, "msg": "success"})
}

func (h *Handler) handleMessageEvent(ctx context.Context, raw json.RawMessage) {
	var event struct {
		Sender struct {
			SenderID struct {
				OpenID string `json:"open_id"`
			} `json:"sender_id"`
		} `json:"sender"`
		Message struct {
			MessageID   string `json:"message_id"`
			ChatID      string `json:"chat_id"`
			MessageType string `json:"message_type"`
			Content     string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		h.logger.Error("message event parse failed", slog.String("error", err.Error()))
		return
	}

	messageID := event.Message.MessageID
	if h.dedup.SeenOrRecord(messageID) {
		h.logger.Info("duplicate message skipped", slog.String("message_id", messageID))
		return
	}

	h.logger.Info("message received",
		slog.String("message_id", messageID),
		slog.String("message_type", event.Message.MessageType))

	msg := inbound.Message{
		MessageID:    messageID,
		MessageType:  event.Message.MessageType,
		Content:      event.Message.Content,
		SenderOpenID: event.Sender.SenderID.OpenID,
		ChatID:       event.Message.ChatID,
	}

	// Process in the background so the platform gets its ack before
	// any slow model or document call runs.
	go h.dispatcher.Dispatch(context.WithoutCancel(ctx), msg)
}

// handleFileDeleted drops local diary records whose cloud document was
// purged from the recycle bin.
func (h *Handler) handleFileDeleted(ctx context.Context, raw json.RawMessage) {
	var event struct {
		FileToken string `json:"file_token"`
		FileType  string `json:"file_type"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		h.logger.Error("file deleted event parse failed", slog.String("error", err.Error()))
		return
	}
	if event.FileToken == "" {
		return
	}

	h.logger.Info("document purged upstream",
		slog.String("file_token", event.FileToken),
		slog.String("file_type", event.FileType))

	records, err := h.diaries.ListByDocumentID(ctx, event.FileToken)
	if err != nil {
		h.logger.Error("lookup diaries by document failed", slog.String("error", err.Error()))
		return
	}
	if len(records) == 0 {
		h.logger.Info("no local diaries bound to document", slog.String("file_token", event.FileToken))
		return
	}
	for _, d := range records {
		if err := h.diaries.Delete(ctx, d.ID); err != nil && !errors.Is(err, diary.ErrNotFound) {
			h.logger.Error("cascade delete failed",
				slog.String("diary_id", d.ID),
				slog.String("error", err.Error()))
			continue
		}
		h.logger.Info("diary record removed with document",
			slog.String("diary_id", d.ID),
			slog.String("file_token", event.FileToken))
	}
}
