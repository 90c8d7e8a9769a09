// Package tui is a full-screen chat over the index: ask questions, walk the
// matched files, open the selected one in the platform file manager.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gamma-omg/localrag/rag"
)

// Asker is the TUI-facing subset of the answering engine.
type Asker interface {
	Ask(ctx context.Context, question string) (rag.Answer, error)
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx    context.Context
	asker  Asker
	opener func(path string) error

	input    textinput.Model
	viewport viewport.Model
	answer   rag.Answer
	status   string
	cursor   int
	ready    bool
}

func New(ctx context.Context, asker Asker, opener func(path string) error) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		ctx:      ctx,
		asker:    asker,
		opener:   opener,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready. Up/Down selects a file, 'o' opens it, Ctrl+C quits.",
	}
}

// Run drives the TUI until the user quits.
func Run(ctx context.Context, asker Asker, opener func(path string) error) error {
	_, err := tea.NewProgram(New(ctx, asker, opener), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m = m.ask(q)
				return m, nil
			}
		case "down":
			if n := len(m.answer.Hits); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if n := len(m.answer.Hits); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "o":
			if m.cursor < len(m.answer.Hits) {
				path := m.answer.Hits[m.cursor].Row.Path
				if err := m.opener(path); err != nil {
					m.status = "Could not open " + path + ": " + err.Error()
				} else {
					m.status = "Opened " + path
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) Model {
	answer, err := m.asker.Ask(m.ctx, question)
	if err != nil {
		m.status = "Error: " + err.Error()
		m.answer = rag.Answer{}
	} else {
		m.answer = answer
		m.cursor = 0
		m.status = fmt.Sprintf("%d matched files", len(answer.Hits))
		if answer.Degraded {
			m.status += " (no chat model, showing ranked matches)"
		}
	}

	m.input.SetValue("")
	m.viewport.SetContent(m.renderAnswer())
	return m
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := lipgloss.NewStyle().Bold(true).Render("localrag")
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer.Text == "" {
		return "Ask something to get started."
	}

	var b strings.Builder
	b.WriteString(m.answer.Text)

	if len(m.answer.Hits) > 0 {
		b.WriteString("\n\nMatched files:\n")
		for i, h := range m.answer.Hits {
			line := fmt.Sprintf("%s (score %.2f)", h.Row.Path, h.Score)
			if i == m.cursor {
				line = selectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
