package diary

import "time"

// Diary is one published (or locally kept) diary entry.
type Diary struct {
	ID         string
	UserID     string
	Title      string
	Content    string
	Summary    string
	Tags       []string
	Images     []string
	DocumentID string // empty when cloud publishing failed
	CreateDate time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const summaryRunes = 100

// Summarize returns the list-view summary for content: the first 100
// runes, with an ellipsis when the content is longer.
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryRunes {
		return content
	}
	return string(runes[:summaryRunes]) + "..."
}
