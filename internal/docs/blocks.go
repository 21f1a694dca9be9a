package docs

import "strings"

// Block type codes used by the docx API.
const (
	blockTypeText     = 2
	blockTypeHeading1 = 3
	blockTypeHeading2 = 4
	blockTypeHeading3 = 5
	blockTypeImage    = 27
)

type textRun struct {
	Content string `json:"content"`
}

type element struct {
	TextRun textRun `json:"text_run"`
}

type textBody struct {
	Elements []element `json:"elements"`
}

// Block is one docx content block in wire format.
type Block struct {
	BlockType int       `json:"block_type"`
	Text      *textBody `json:"text,omitempty"`
	Heading1  *textBody `json:"heading1,omitempty"`
	Heading2  *textBody `json:"heading2,omitempty"`
	Heading3  *textBody `json:"heading3,omitempty"`
	Image     *struct{} `json:"image,omitempty"`
}

func textBlock(blockType int, content string) Block {
	body := &textBody{Elements: []element{{TextRun: textRun{Content: content}}}}
	b := Block{BlockType: blockType}
	switch blockType {
	case blockTypeHeading1:
		b.Heading1 = body
	case blockTypeHeading2:
		b.Heading2 = body
	case blockTypeHeading3:
		b.Heading3 = body
	default:
		b.Text = body
	}
	return b
}

func imageBlock() Block {
	return Block{BlockType: blockTypeImage, Image: &struct{}{}}
}

// ConvertBlocks turns markdown-ish diary text into docx blocks. Lines
// starting with one to three hashes become headings, other non-blank
// lines become text paragraphs, blank lines are dropped.
func ConvertBlocks(content string) []Block {
	var blocks []Block
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, textBlock(blockTypeHeading3, line[len("### "):]))
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, textBlock(blockTypeHeading2, line[len("## "):]))
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, textBlock(blockTypeHeading1, line[len("# "):]))
		default:
			blocks = append(blocks, textBlock(blockTypeText, line))
		}
	}
	return blocks
}
