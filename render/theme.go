package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kir-gadjello/gemtutor/attachment"
	"github.com/kir-gadjello/gemtutor/conversation"
)

const defaultWidth = 80

// Theme holds the terminal styles for each block type and message chrome.
type Theme struct {
	Heading   lipgloss.Style
	Quote     lipgloss.Style
	Divider   lipgloss.Style
	Bullet    lipgloss.Style
	Paragraph lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Chip           lipgloss.Style
	Timestamp      lipgloss.Style
}

func DefaultTheme() Theme {
	return Theme{
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Quote:     lipgloss.NewStyle().Italic(true).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("39")).PaddingLeft(1),
		Divider:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Bullet:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Paragraph: lipgloss.NewStyle(),

		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("171")),
		Chip:           lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Timestamp:      lipgloss.NewStyle().Faint(true),
	}
}

// PlainTheme renders without colours, for pipes and tests.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Heading:        plain,
		Quote:          plain.Copy().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1),
		Divider:        plain,
		Bullet:         plain,
		Paragraph:      plain,
		UserLabel:      plain,
		AssistantLabel: plain,
		Chip:           plain,
		Timestamp:      plain,
	}
}

// Blocks draws blocks one per line, wrapped to width.
func (th Theme) Blocks(blocks []Block, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case Heading:
			lines = append(lines, th.Heading.Copy().Width(width).Render(b.Text))
		case Quote:
			lines = append(lines, th.Quote.Copy().Width(width-1).Render(b.Text))
		case Divider:
			lines = append(lines, th.Divider.Render(strings.Repeat("─", width)))
		case ListItem:
			item := th.Paragraph.Copy().Width(width - 4).Render(b.Text)
			bullet := th.Bullet.Render("  • ")
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, bullet, item))
		case Blank:
			lines = append(lines, "")
		default:
			lines = append(lines, th.Paragraph.Copy().Width(width).Render(b.Text))
		}
	}
	return strings.Join(lines, "\n")
}

// Text renders an answer straight from its raw text.
func (th Theme) Text(text string, width int) string {
	return th.Blocks(Render(text), width)
}

// Chip is the one-line label shown for an attachment.
func Chip(att attachment.Attachment) string {
	if att.Kind == attachment.KindImage {
		return fmt.Sprintf("[image] %s", att.Name)
	}
	return fmt.Sprintf("[doc] %s", att.Name)
}

// Message draws a single conversation entry: label, attachment chips, body
// and time of day. User text is shown as typed.
func (th Theme) Message(msg conversation.Message, width int) string {
	var b strings.Builder

	label := th.AssistantLabel.Render(strings.ToUpper(msg.Author.String()))
	if msg.Author == conversation.AuthorUser {
		label = th.UserLabel.Render(strings.ToUpper(msg.Author.String()))
	}
	b.WriteString(label)
	b.WriteString("\n")

	for _, att := range msg.Attachments {
		b.WriteString(th.Chip.Render(Chip(att)))
		b.WriteString("\n")
	}

	if msg.Author == conversation.AuthorUser {
		var blocks []Block
		for _, line := range strings.Split(msg.Text, "\n") {
			blocks = append(blocks, Block{Type: Paragraph, Text: line})
		}
		b.WriteString(th.Blocks(blocks, width))
	} else {
		b.WriteString(th.Text(msg.Text, width))
	}
	b.WriteString("\n")

	if !msg.CreatedAt.IsZero() {
		b.WriteString(th.Timestamp.Render(msg.CreatedAt.Format("15:04")))
	}
	return b.String()
}

// Log draws a whole conversation, messages separated by a blank line.
func (th Theme) Log(msgs []conversation.Message, width int) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, th.Message(m, width))
	}
	return strings.Join(parts, "\n\n")
}
