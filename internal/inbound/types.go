package inbound

import (
	"context"

	"github.com/inkwellai/inkwell/internal/chat"
	"github.com/inkwellai/inkwell/internal/diary"
	"github.com/inkwellai/inkwell/internal/docs"
	"github.com/inkwellai/inkwell/internal/session"
)

// Message is one inbound chat message, already unwrapped from the event
// envelope. Content carries the platform's raw JSON content string.
type Message struct {
	MessageID    string
	MessageType  string
	Content      string
	SenderOpenID string
	ChatID       string
}

// Handler processes one inbound message kind.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type SessionStore interface {
	GetOrCreate(ctx context.Context, userID string) (*session.Session, error)
	AppendMessage(ctx context.Context, userID, role, content string) error
	AddMedia(ctx context.Context, userID string, ref session.MediaRef) error
	ListMedia(ctx context.Context, userID string) ([]session.MediaRef, error)
	ClearMedia(ctx context.Context, userID string) error
	Context(ctx context.Context, userID string) ([]chat.Message, error)
	Close(ctx context.Context, userID string) error
}

type Composer interface {
	GuideReply(ctx context.Context, history []chat.Message) string
	Diary(ctx context.Context, history []chat.Message) string
}

type DiaryStore interface {
	Save(ctx context.Context, d *diary.Diary) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*diary.Diary, error)
	ListByDocumentID(ctx context.Context, documentID string) ([]*diary.Diary, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

type DocPublisher interface {
	Publish(ctx context.Context, input docs.PublishInput) (*docs.Document, error)
	Delete(ctx context.Context, documentID string) error
}

type Notifier interface {
	SendText(ctx context.Context, openID, text string) error
}
