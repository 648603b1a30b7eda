// Package render turns model answers into a flat sequence of typed blocks
// and draws them for the terminal.
package render

import "strings"

type BlockType int

const (
	Paragraph BlockType = iota
	Heading
	Quote
	Divider
	ListItem
	Blank
)

func (t BlockType) String() string {
	switch t {
	case Heading:
		return "heading"
	case Quote:
		return "quote"
	case Divider:
		return "divider"
	case ListItem:
		return "list"
	case Blank:
		return "blank"
	default:
		return "paragraph"
	}
}

type Block struct {
	Type BlockType
	Text string
}

// Render classifies every line of text on its own. Consecutive list items
// stay separate blocks and inline markup is left untouched.
func Render(text string) []Block {
	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, classify(line))
	}
	return blocks
}

func classify(line string) Block {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, "## "):
		return Block{Type: Heading, Text: strings.TrimPrefix(trimmed, "## ")}
	case strings.HasPrefix(trimmed, "> "):
		return Block{Type: Quote, Text: strings.TrimPrefix(trimmed, "> ")}
	case strings.HasPrefix(trimmed, "---"):
		return Block{Type: Divider}
	case strings.HasPrefix(trimmed, "* "), strings.HasPrefix(trimmed, "- "):
		return Block{Type: ListItem, Text: trimmed[2:]}
	case trimmed == "":
		return Block{Type: Blank}
	default:
		// CRLF input leaves a carriage return behind the split.
		return Block{Type: Paragraph, Text: strings.TrimSuffix(line, "\r")}
	}
}
