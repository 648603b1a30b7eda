package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kir-gadjello/gemtutor/conversation"
	"github.com/kir-gadjello/gemtutor/render"
	"github.com/kir-gadjello/gemtutor/turn"
	"go.uber.org/zap"
)

var TEXTINPUT_PLACEHOLDER = "Tulis pesan lalu tekan Enter... (/attach, /drop, /search, /export)"

const busyPlaceholder = "Menunggu jawaban..."

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	chipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

type chatTuiState struct {
	ctx context.Context
	app *app

	spinner  spinner.Model
	viewport viewport.Model
	textarea textarea.Model
	theme    render.Theme

	ch            <-chan conversation.Message
	attaching     bool
	status        string
	statusErr     bool
	viewportWidth int

	// copyText is swapped out in tests; the real clipboard needs a display.
	copyText func(string) error

	// Search Mode
	inSearch bool
	search   searchModel
}

type replyMsg struct {
	msg conversation.Message
}

type attachDoneMsg struct {
	added int
	errs  []error
	// send is the prompt to submit once the attachments are pending.
	send    *string
	elapsed time.Duration
}

type exportDoneMsg struct {
	path string
	err  error
}

func initialModel(ctx context.Context, a *app, initialTextareaValue string) chatTuiState {
	ta := textarea.New()
	ta.Placeholder = TEXTINPUT_PLACEHOLDER
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 100000
	ta.MaxHeight = 32
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.SetValue(initialTextareaValue)

	width := a.rc.Width
	if width <= 0 {
		width = fallbackWidth
	}

	vp := viewport.New(width, 20)
	vp.MouseWheelEnabled = true

	sp := spinner.New()
	sp.Spinner = spinner.Pulse
	sp.Spinner.FPS = time.Second / 10
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("171"))

	m := chatTuiState{
		ctx:           ctx,
		app:           a,
		spinner:       sp,
		viewport:      vp,
		textarea:      ta,
		theme:         render.DefaultTheme(),
		viewportWidth: width,
		copyText:      clipboard.WriteAll,
		search:        newSearchModel(),
	}
	m.refresh()
	return m
}

func (m chatTuiState) Init() tea.Cmd {
	return textarea.Blink
}

func (m chatTuiState) busy() bool {
	return m.app.controller().Busy()
}

func (m *chatTuiState) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *chatTuiState) refresh() {
	msgs := m.app.controller().Store().Snapshot()
	if len(msgs) == 0 {
		m.viewport.SetContent(statusStyle.Render("<percakapan masih kosong>"))
		return
	}
	m.viewport.SetContent(m.theme.Log(msgs, m.viewportWidth))
	m.viewport.GotoBottom()
}

func waitReply(ch <-chan conversation.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return replyMsg{msg: msg}
	}
}

func (m chatTuiState) attachCmd(paths []string, send *string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		start := time.Now()
		added, errs := a.attach(ctx, paths)
		return attachDoneMsg{added: added, errs: errs, send: send, elapsed: time.Since(start)}
	}
}

func (m chatTuiState) exportCmd(path string) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportDoneMsg{path: path, err: err}
		}
		err = a.index.Export(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return exportDoneMsg{path: path, err: err}
	}
}

// sendMsg starts a turn. The input stays disabled until the reply lands.
func sendMsg(m chatTuiState, usermsg string) (tea.Model, tea.Cmd) {
	ch, err := m.app.send(m.ctx, usermsg)
	switch {
	case errors.Is(err, turn.ErrEmptyTurn):
		return m, nil
	case errors.Is(err, turn.ErrBusy):
		m.setStatus("Masih menunggu jawaban sebelumnya.", true)
		return m, nil
	case err != nil:
		m.app.logger.Error("send failed", zap.Error(err))
		m.setStatus(err.Error(), true)
		return m, nil
	}

	m.ch = ch
	m.setStatus("", false)
	m.textarea.Reset()
	m.textarea.Placeholder = busyPlaceholder
	m.textarea.Blur()
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, waitReply(ch))
}

func (m chatTuiState) runCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]
	m.textarea.Reset()

	switch name {
	case "/attach":
		if len(args) == 0 {
			m.setStatus("Pemakaian: /attach <berkas...>", true)
			return m, nil
		}
		m.attaching = true
		m.setStatus(fmt.Sprintf("Menyiapkan %d lampiran...", len(args)), false)
		return m, m.attachCmd(args, nil)

	case "/drop":
		n := 0
		if len(args) == 1 {
			n, _ = strconv.Atoi(args[0])
		}
		att, ok := m.app.pending.Remove(n - 1)
		if !ok {
			m.setStatus(fmt.Sprintf("Tidak ada lampiran nomor %s.", strings.Join(args, " ")), true)
			return m, nil
		}
		m.setStatus("Lampiran dihapus: "+att.Name, false)
		return m, nil

	case "/search":
		query := strings.TrimSpace(strings.TrimPrefix(input, name))
		hits, err := m.app.index.Search(query)
		if err != nil {
			m.setStatus("Pencarian gagal: "+err.Error(), true)
			return m, nil
		}
		if len(hits) == 0 {
			m.setStatus("Tidak ada hasil untuk "+query, false)
			return m, nil
		}
		m.search = m.search.open(hits, m.viewportWidth+2, m.viewport.Height+m.textarea.Height()+2)
		m.inSearch = true
		return m, nil

	case "/export":
		if len(args) != 1 {
			m.setStatus("Pemakaian: /export <berkas.jsonl>", true)
			return m, nil
		}
		return m, m.exportCmd(args[0])
	}

	m.setStatus("Perintah tidak dikenal: "+name, true)
	return m, nil
}

func (m chatTuiState) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if !m.search.closed {
		return m, cmd
	}

	m.inSearch = false
	if hit := m.search.selected; hit != nil {
		m.copyOrReport(hit.Text, "Pesan disalin ke clipboard.")
	}
	return m, nil
}

func (m chatTuiState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.inSearch {
		return m.updateSearch(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.Type {

		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlN:
			if m.attaching {
				m.setStatus("Tunggu lampiran selesai disiapkan.", true)
				return m, nil
			}
			if err := m.app.reset(); err != nil {
				m.setStatus("Tunggu jawaban selesai sebelum memulai percakapan baru.", true)
				return m, nil
			}
			m.ch = nil
			m.textarea.Reset()
			m.textarea.Placeholder = TEXTINPUT_PLACEHOLDER
			m.textarea.Focus()
			m.setStatus("Percakapan baru dimulai.", false)
			m.refresh()
			return m, nil

		case tea.KeyCtrlS:
			msgs := m.app.controller().Store().Snapshot()
			if len(msgs) > 0 {
				m.copyOrReport(render.PlainTheme().Log(msgs, m.viewportWidth), "Seluruh percakapan disalin.")
			}
			return m, nil

		case tea.KeyCtrlE:
			if last, ok := m.app.controller().Store().Last(); ok {
				m.copyOrReport(last.Text, "Pesan terakhir disalin.")
			}
			return m, nil

		case tea.KeyEnter:
			if m.busy() || m.attaching {
				return m, nil
			}
			if msg.Alt {
				m.textarea.InsertString("\n")
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if strings.HasPrefix(input, "/") {
				return m.runCommand(input)
			}

			text, refs := m.app.promptRefs(m.textarea.Value())
			if len(refs) > 0 {
				m.attaching = true
				m.textarea.Reset()
				m.textarea.Blur()
				m.setStatus(fmt.Sprintf("Menyiapkan %d lampiran...", len(refs)), false)
				return m, m.attachCmd(refs, &text)
			}
			return sendMsg(m, m.textarea.Value())
		}

		if m.busy() {
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case tea.WindowSizeMsg:
		m.textarea.SetWidth(msg.Width - 2)
		m.viewport.Width = msg.Width - 2
		m.viewportWidth = msg.Width - 2
		m.viewport.Height = msg.Height - 3 - m.textarea.Height()
		m.refresh()

	case attachDoneMsg:
		m.attaching = false
		status := fmt.Sprintf("%d lampiran ditambahkan.", msg.added)
		if len(msg.errs) > 0 {
			reasons := make([]string, 0, len(msg.errs))
			for _, err := range msg.errs {
				reasons = append(reasons, err.Error())
			}
			status += " Gagal: " + strings.Join(reasons, "; ")
		}
		m.setStatus(status, len(msg.errs) > 0)
		m.app.logger.Debug("attach finished", zap.Int("added", msg.added), zap.Duration("elapsed", msg.elapsed))
		if msg.send != nil {
			m.textarea.Focus()
			return sendMsg(m, *msg.send)
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.setStatus("Ekspor gagal: "+msg.err.Error(), true)
		} else {
			m.setStatus("Percakapan diekspor ke "+msg.path, false)
		}
		return m, nil

	case replyMsg:
		m.ch = nil
		m.textarea.Placeholder = TEXTINPUT_PLACEHOLDER
		m.textarea.Focus()
		m.refresh()
		return m, textarea.Blink

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var spCmd tea.Cmd
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *chatTuiState) copyOrReport(text, ok string) {
	if err := m.copyText(text); err != nil {
		m.setStatus("Gagal menyalin: "+err.Error(), true)
		return
	}
	m.setStatus(ok, false)
}

func (m chatTuiState) chips() string {
	pending := m.app.pending.List()
	if len(pending) == 0 {
		return ""
	}
	labels := make([]string, 0, len(pending))
	for i, att := range pending {
		labels = append(labels, fmt.Sprintf("%d:%s", i+1, render.Chip(att)))
	}
	return chipStyle.Render(strings.Join(labels, "  "))
}

func (m chatTuiState) statusLine() string {
	if m.busy() {
		return m.spinner.View() + " " + statusStyle.Render(busyPlaceholder)
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}

func (m chatTuiState) View() string {
	if m.inSearch {
		return m.search.View()
	}

	return fmt.Sprintf(
		"%s\n%s\n%s\n%s",
		m.viewport.View(),
		m.chips(),
		m.statusLine(),
		m.textarea.View(),
	) + "\n"
}

func runTUI(ctx context.Context, a *app, initial string) error {
	p := tea.NewProgram(initialModel(ctx, a, initial), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
