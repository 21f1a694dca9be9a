package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBlocks(t *testing.T) {
	content := "# 日记 - 2025年06月04日\n\n## 今日概览\n今天去了公园，天气很好。\n\n### 备注\n"

	blocks := ConvertBlocks(content)
	require.Len(t, blocks, 4)

	assert.Equal(t, blockTypeHeading1, blocks[0].BlockType)
	require.NotNil(t, blocks[0].Heading1)
	assert.Equal(t, "日记 - 2025年06月04日", blocks[0].Heading1.Elements[0].TextRun.Content)

	assert.Equal(t, blockTypeHeading2, blocks[1].BlockType)
	require.NotNil(t, blocks[1].Heading2)
	assert.Equal(t, "今日概览", blocks[1].Heading2.Elements[0].TextRun.Content)

	assert.Equal(t, blockTypeText, blocks[2].BlockType)
	require.NotNil(t, blocks[2].Text)
	assert.Equal(t, "今天去了公园，天气很好。", blocks[2].Text.Elements[0].TextRun.Content)

	assert.Equal(t, blockTypeHeading3, blocks[3].BlockType)
	require.NotNil(t, blocks[3].Heading3)
	assert.Equal(t, "备注", blocks[3].Heading3.Elements[0].TextRun.Content)
}

func TestConvertBlocksEmpty(t *testing.T) {
	assert.Empty(t, ConvertBlocks(""))
	assert.Empty(t, ConvertBlocks("\n  \n\n"))
}

func TestConvertBlocksHashWithoutSpace(t *testing.T) {
	// A hash with no trailing space is plain text, not a heading.
	blocks := ConvertBlocks("#标签")
	require.Len(t, blocks, 1)
	assert.Equal(t, blockTypeText, blocks[0].BlockType)
}
