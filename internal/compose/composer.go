package compose

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkwellai/inkwell/internal/chat"
)

var (
	guideTemperature = float32(0.8)
	diaryTemperature = float32(0.7)
	replyMaxTokens   = 500
)

type chatClient interface {
	Chat(ctx context.Context, req chat.Request) (chat.Result, error)
	Configured() bool
}

// Composer turns conversation context into guide replies and finished
// diary text. It degrades to canned replies instead of returning errors
// so a broken model never blocks the conversation.
type Composer struct {
	client chatClient
	logger *slog.Logger
	now    func() time.Time
}

func NewComposer(client chatClient, logger *slog.Logger) *Composer {
	return &Composer{
		client: client,
		logger: logger.With(slog.String("service", "compose")),
		now:    time.Now,
	}
}

// GuideReply answers one conversational turn. history is the session
// context in chronological order, persona message included.
func (c *Composer) GuideReply(ctx context.Context, history []chat.Message) string {
	now := c.now()
	messages := make([]chat.Message, 0, len(history)+2)
	messages = append(messages, chat.Message{Role: "system", Content: guidePrompt(DateInfo(now))})
	messages = append(messages, dropSystem(history)...)

	if last := lastUserMessage(history); needsLookup(last) {
		messages = append(messages, chat.Message{
			Role:    "system",
			Content: "联网搜索结果：" + lookupAnswer(last, now),
		})
	}

	return c.complete(ctx, messages, guideTemperature, history)
}

// Diary composes the session into a finished diary entry.
func (c *Composer) Diary(ctx context.Context, history []chat.Message) string {
	now := c.now()
	messages := make([]chat.Message, 0, len(history)+2)
	messages = append(messages, chat.Message{Role: "system", Content: diaryPrompt(DateInfo(now))})
	messages = append(messages, dropSystem(history)...)
	messages = append(messages, chat.Message{Role: "user", Content: diaryRequest})

	return c.complete(ctx, messages, diaryTemperature, messages)
}

func (c *Composer) complete(ctx context.Context, messages []chat.Message, temperature float32, fallbackFrom []chat.Message) string {
	if !c.client.Configured() {
		return fallbackReply(lastUserMessage(fallbackFrom), c.now())
	}

	result, err := c.client.Chat(ctx, chat.Request{
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &replyMaxTokens,
	})
	if err != nil {
		c.logger.Warn("model call failed, using fallback reply", slog.String("error", err.Error()))
		return fallbackReply(lastUserMessage(fallbackFrom), c.now())
	}
	return result.Message.Content
}

func dropSystem(history []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == "system" {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func lastUserMessage(history []chat.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}
