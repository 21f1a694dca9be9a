// Package intent decides, from a single utterance, whether the user issued a
// command and whether the conversation should be wrapped up into a diary.
// The decision is lexical and deterministic on purpose: composition is an
// expensive, user-visible action and must not depend on model behaviour.
package intent

import "strings"

// finishKeywords are the phrases that signal the user is done for the day.
var finishKeywords = []string{
	"结束",
	"完成",
	"整理",
	"生成日记",
	"好了",
	"就这样",
	"总结",
	"帮我总结",
	"整理日记",
}

// Intent is the classification of one user utterance.
type Intent struct {
	// IsCommand is true when the text starts with the command marker "/".
	IsCommand bool
	// ShouldCompose is true when the text contains a finish keyword.
	ShouldCompose bool
}

// Classify inspects a user utterance. A command is never composed from, even
// if it happens to contain a finish keyword; command handling owns that path.
func Classify(text string) Intent {
	var result Intent
	if strings.HasPrefix(text, "/") {
		result.IsCommand = true
		return result
	}
	lowered := strings.ToLower(text)
	for _, kw := range finishKeywords {
		if strings.Contains(lowered, kw) {
			result.ShouldCompose = true
			break
		}
	}
	return result
}
