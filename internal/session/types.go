package session

import "time"

// Media kinds carried in a session.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// Message is one stored conversation turn.
type Message struct {
	Role      string    `json:"role"` // user, assistant, system
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaRef records a picture or video the user sent during the day.
// The bytes stay on the platform; only the keys needed to fetch them
// at publish time are kept.
type MediaRef struct {
	Kind      string    `json:"type"`
	FileName  string    `json:"file_name"`
	AssetKey  string    `json:"asset_key"`
	FileSize  int64     `json:"file_size,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Status    string    `json:"status"`
	AddedAt   time.Time `json:"added_at"`
}

// Session is one user's diary conversation for a single day.
type Session struct {
	ID        string
	UserID    string
	Date      time.Time
	Messages  []Message
	Media     []MediaRef
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	statusActive = "active"
	statusClosed = "closed"
)
