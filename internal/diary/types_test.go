package diary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	short := "今天很开心。"
	assert.Equal(t, short, Summarize(short))

	exact := strings.Repeat("好", 100)
	assert.Equal(t, exact, Summarize(exact))

	long := strings.Repeat("好", 101)
	got := Summarize(long)
	assert.Equal(t, strings.Repeat("好", 100)+"...", got)
	assert.Equal(t, 103, len([]rune(got)))
}
