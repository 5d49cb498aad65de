package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type turn struct {
	question string
	answer   string
	failed   bool
}

// answerMsg carries the result of an Ask issued by askCmd
type answerMsg struct {
	answer string
	err    error
}

// ChatModel is the Bubble Tea model for an interactive chat session.
type ChatModel struct {
	asker    Asker
	header   string
	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	pending  bool
	status   string
	ready    bool
}

// NewChatModel creates a chat session view.
func NewChatModel(asker Asker, clientID, provider string) ChatModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about products, shipping, prices..."
	ti.Focus()
	ti.CharLimit = 0
	return ChatModel{
		asker:    asker,
		header:   fmt.Sprintf("client %s, model %s", clientID, provider),
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Type a question and press Enter. Ctrl+C to quit.",
	}
}

func (m ChatModel) Init() tea.Cmd { return textinput.Blink }

func (m ChatModel) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.asker.Ask(question)
		return answerMsg{answer: answer, err: err}
	}
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		// title + header + status + input line
		reserved := 3 + 1 + fh + ih
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = false
		last := &m.turns[len(m.turns)-1]
		if msg.err != nil {
			last.answer = msg.err.Error()
			last.failed = true
			m.status = "Request failed."
		} else {
			last.answer = msg.answer
			m.status = "Ready."
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.turns = append(m.turns, turn{question: q})
			m.input.SetValue("")
			m.pending = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.askCmd(q)
		}
	}

	var inputCmd, viewCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewCmd)
}

func (m ChatModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := titleStyle.Render("ChatBot RAG")
	header := mutedStyle.Render(m.header)
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return title + "\n" + header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(renderTranscript(m.turns, m.viewport.Width))
	m.viewport.GotoBottom()
}

func renderTranscript(turns []turn, width int) string {
	if len(turns) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	wrap := lipgloss.NewStyle().Width(max(10, width-4))

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: "))
		b.WriteString(wrap.Render(t.question))
		b.WriteString("\n")
		switch {
		case t.answer == "" && !t.failed:
			b.WriteString(mutedStyle.Render("..."))
		case t.failed:
			b.WriteString(errorStyle.Render("Error: " + t.answer))
		default:
			b.WriteString(answerStyle.Render("Bot: "))
			b.WriteString(wrap.Render(t.answer))
		}
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
