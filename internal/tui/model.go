package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
	"docchat/internal/session"
)

// ChatPort is the TUI-facing subset of the session manager.
type ChatPort interface {
	Begin(sessionID, filename string)
	Build(ctx context.Context, sessionID, path, filename string)
	Status(sessionID string) session.Snapshot
	Answer(ctx context.Context, sessionID, question string, includeReasoning bool) (session.Result, error)
}

type buildDoneMsg struct{ snap session.Snapshot }

type answerMsg struct {
	result session.Result
	err    error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	mgr       ChatPort
	sessionID string
	pdfPath   string
	filename  string

	input    textinput.Model
	viewport viewport.Model

	messages     []domain.ChatMessage
	thinking     []string
	showThinking bool
	status       string
	building     bool
	waiting      bool
	ready        bool
}

// New creates a new chat model for the given document.
func New(mgr ChatPort, sessionID, pdfPath, filename string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the document"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		mgr:       mgr,
		sessionID: sessionID,
		pdfPath:   pdfPath,
		filename:  filename,
		input:     ti,
		viewport:  vp,
		building:  true,
		status:    fmt.Sprintf("Processing %s ...", filename),
	}
}

// Init starts the background document build alongside the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.buildCmd())
}

func (m Model) buildCmd() tea.Cmd {
	mgr, id, path, name := m.mgr, m.sessionID, m.pdfPath, m.filename
	return func() tea.Msg {
		mgr.Begin(id, name)
		mgr.Build(context.Background(), id, path, name)
		return buildDoneMsg{snap: mgr.Status(id)}
	}
}

func (m Model) answerCmd(question string) tea.Cmd {
	mgr, id := m.mgr, m.sessionID
	return func() tea.Msg {
		res, err := mgr.Answer(context.Background(), id, question, true)
		return answerMsg{result: res, err: err}
	}
}

// Update handles key, window, and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = maxInt(3, vh-ch)
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case buildDoneMsg:
		m.building = false
		if msg.snap.Status == session.StatusCompleted {
			m.status = fmt.Sprintf("Ready. Ask about %s (ctrl+r toggles reasoning).", m.filename)
			m.messages = append(m.messages, domain.ChatMessage{
				Role:    domain.RoleAssistant,
				Content: "Document processed. What would you like to know?",
			})
			m.thinking = append(m.thinking, "")
		} else {
			m.status = "Error: " + msg.snap.Err
		}
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Ready."
			m.messages = append(m.messages, domain.ChatMessage{
				Role:    domain.RoleAssistant,
				Content: msg.result.Answer,
			})
			m.thinking = append(m.thinking, msg.result.Thinking)
		}
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+r":
			m.showThinking = !m.showThinking
			m.viewport.SetContent(m.renderMessages())
			m.viewport.GotoBottom()
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.building && !m.waiting {
				m.messages = append(m.messages, domain.ChatMessage{Role: domain.RoleUser, Content: q})
				m.thinking = append(m.thinking, "")
				m.input.Reset()
				m.waiting = true
				m.status = "Thinking..."
				m.viewport.SetContent(m.renderMessages())
				m.viewport.GotoBottom()
				return m, m.answerCmd(q)
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docchat — " + m.filename)
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return "Waiting for the document to finish processing..."
	}
	var b strings.Builder
	for i, msg := range m.messages {
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: ") + msg.Content)
		case domain.RoleAssistant:
			if m.showThinking && i < len(m.thinking) && m.thinking[i] != "" {
				b.WriteString(thinkingStyle.Render(m.thinking[i]))
				b.WriteString("\n")
			}
			b.WriteString(assistantStyle.Render("docchat: ") + msg.Content)
		}
		if i < len(m.messages)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	thinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
