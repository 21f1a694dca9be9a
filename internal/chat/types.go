package chat

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// Request is the internal request structure
type Request struct {
	Messages    []Message
	Temperature *float32 // optional temperature
	MaxTokens   *int     // optional max tokens
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the internal result structure
type Result struct {
	Message      Message
	Model        string
	FinishReason string
	Usage        Usage
}
