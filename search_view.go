package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kir-gadjello/gemtutor/history"
)

var searchFrame = lipgloss.NewStyle().Margin(1, 2)

type hitItem struct {
	hit history.Hit
}

func (h hitItem) Title() string {
	return fmt.Sprintf("%s (%s)", h.hit.CreatedAt.Format("15:04"), h.hit.Role)
}
func (h hitItem) Description() string { return strings.ReplaceAll(h.hit.Preview, "\n", " ") }
func (h hitItem) FilterValue() string { return h.hit.Text + " " + h.hit.Role }

// searchModel lists /search hits. It closes on Enter, with the hit
// selected, or on Esc.
type searchModel struct {
	list     list.Model
	selected *history.Hit
	closed   bool
}

func newSearchModel() searchModel {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Cari di percakapan (Enter menyalin, Esc kembali)"
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFF")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)
	l.SetShowHelp(false)
	return searchModel{list: l}
}

func (m searchModel) open(hits []history.Hit, width, height int) searchModel {
	items := make([]list.Item, len(hits))
	for i, h := range hits {
		items[i] = hitItem{hit: h}
	}
	m.list.SetItems(items)
	m.list.ResetSelected()
	fw, fh := searchFrame.GetFrameSize()
	m.list.SetSize(width-fw, height-fh)
	m.selected = nil
	m.closed = false
	return m
}

func (m searchModel) Update(msg tea.Msg) (searchModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.closed = true
			return m, nil
		case tea.KeyEnter:
			if i, ok := m.list.SelectedItem().(hitItem); ok {
				m.selected = &i.hit
			}
			m.closed = true
			return m, nil
		}
	case tea.WindowSizeMsg:
		fw, fh := searchFrame.GetFrameSize()
		m.list.SetSize(msg.Width-fw, msg.Height-fh)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m searchModel) View() string {
	return searchFrame.Render(m.list.View())
}
