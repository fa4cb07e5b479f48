// Package tui is an interactive chat over one user's documents.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdf-rag/internal/models"
)

// Asker is the TUI-facing subset of the RAG pipeline.
type Asker interface {
	Ask(ctx context.Context, userID, question string) (*models.Answer, error)
}

type exchange struct {
	question string
	answer   *models.Answer
	err      error
}

type answerMsg struct {
	question string
	answer   *models.Answer
	err      error
}

type Model struct {
	ctx      context.Context
	asker    Asker
	userID   string
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	thinking bool
	ready    bool
}

func New(ctx context.Context, asker Asker, userID string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 1000

	return Model{
		ctx:      ctx,
		asker:    asker,
		userID:   userID,
		input:    ti,
		viewport: viewport.New(80, 20),
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, asker Asker, userID string) error {
	_, err := tea.NewProgram(New(ctx, asker, userID), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := historyBoxStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-frame-5)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case answerMsg:
		m.thinking = false
		m.history = append(m.history, exchange(msg))
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.thinking {
				return m, nil
			}
			m.input.Reset()
			m.thinking = true
			return m, m.ask(q)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.asker.Ask(m.ctx, m.userID, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return mutedStyle.Render("No questions yet.")
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("Q: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render("Error: " + ex.err.Error()))
			continue
		}
		b.WriteString(ex.answer.Text)
		if len(ex.answer.Sources) > 0 {
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render(fmt.Sprintf("%d passages from %s", ex.answer.SourcesUsed, strings.Join(ex.answer.Sources, ", "))))
		}
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("pdf-rag chat") + "  " + mutedStyle.Render("user "+m.userID)
	status := mutedStyle.Render("enter to ask, esc to quit")
	if m.thinking {
		status = statusStyle.Render("thinking…")
	}
	return header + "\n" + historyBoxStyle.Render(m.viewport.View()) + "\n" + m.input.View() + "\n" + status
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	questionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
