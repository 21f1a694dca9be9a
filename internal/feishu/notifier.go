package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// Notifier sends outbound chat messages to users, addressed by open_id.
type Notifier struct {
	client *lark.Client
	logger *slog.Logger
}

func NewNotifier(log *slog.Logger, client *lark.Client) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		client: client,
		logger: log.With(slog.String("service", "notifier")),
	}
}

// SendText delivers a plain text message to the user. Failures are returned
// to the caller; most call sites treat them as best-effort and log.
func (n *Notifier) SendText(ctx context.Context, openID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("message text is required")
	}
	if strings.TrimSpace(openID) == "" {
		return fmt.Errorf("recipient open_id is required")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal text content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeOpenId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Uuid(uuid.NewString()).
			Build()).
		Build()

	resp, err := n.client.Im.V1.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("send failed", slog.String("open_id", openID), slog.Any("error", err))
		return err
	}
	if resp == nil || !resp.Success() {
		code, msg := 0, ""
		if resp != nil {
			code, msg = resp.Code, resp.Msg
		}
		n.logger.Error("send failed", slog.String("open_id", openID), slog.Int("code", code), slog.String("msg", msg))
		return &APIError{Code: code, Msg: msg}
	}
	return nil
}
