package tui

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Port is the TUI-facing subset of the gateway.
type Port interface {
	WebLoad(ctx context.Context, urlList, openaiKey, zillizURI, user, password string) string
	GenerateAnswer(ctx context.Context, question string) string
}

const (
	fieldURLs = iota
	fieldKey
	fieldURI
	fieldUser
	fieldPassword
	fieldQuestion
	fieldCount
)

type loadDoneMsg struct{ status string }

type answerDoneMsg struct {
	question string
	answer   string
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx       context.Context
	port      Port
	inputs    []textinput.Model
	focus     int
	viewport  viewport.Model
	status    string
	answer    string
	question  string
	loading   bool
	answering bool
	ready     bool
}

// New creates a new TUI model. Blank fields fall back to the gateway's defaults.
func New(ctx context.Context, port Port) Model {
	specs := []struct {
		prompt, placeholder string
		secret              bool
	}{
		{"url list  ", "https://milvus.io/docs/overview.md (space separated)", false},
		{"openai key", "sk-******", true},
		{"zilliz uri", "https://<instance-id>.<cloud-region-id>.vectordb.zillizcloud.com:<port>", false},
		{"username  ", "db_admin", false},
		{"password  ", "******", true},
		{"question  ", "What is milvus?", false},
	}
	inputs := make([]textinput.Model, fieldCount)
	for i, s := range specs {
		ti := textinput.New()
		ti.Prompt = s.prompt + " > "
		ti.Placeholder = s.placeholder
		ti.CharLimit = 0
		if s.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
		}
		inputs[i] = ti
	}
	inputs[fieldURLs].Focus()
	return Model{
		ctx:      ctx,
		port:     port,
		inputs:   inputs,
		viewport: viewport.New(0, 0),
		status:   "Fill in the fields, ctrl+l to load data.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		aw, ah := answerBoxStyle.GetFrameSize()
		reserved := 1 + fieldCount + 1 + 1 // header, inputs, status, spacer
		m.viewport.Width = max(20, msg.Width-aw)
		m.viewport.Height = max(3, msg.Height-reserved-ah)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case loadDoneMsg:
		m.loading = false
		m.status = msg.status
		return m, nil

	case answerDoneMsg:
		m.answering = false
		m.answer = msg.answer
		m.question = msg.question
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+l":
			return m.startLoad()
		case "tab", "down":
			return m.setFocus(m.focus + 1), nil
		case "shift+tab", "up":
			return m.setFocus(m.focus - 1), nil
		case "enter":
			if m.focus == fieldQuestion {
				return m.startAnswer()
			}
			return m.setFocus(m.focus + 1), nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// startLoad runs the load as its own command so answering stays responsive.
func (m Model) startLoad() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	m.loading = true
	m.status = "Loading data..."
	ctx, port := m.ctx, m.port
	vals := make([]string, fieldQuestion)
	for i := range vals {
		vals[i] = m.inputs[i].Value()
	}
	return m, func() tea.Msg {
		return loadDoneMsg{status: port.WebLoad(ctx, vals[fieldURLs], vals[fieldKey], vals[fieldURI], vals[fieldUser], vals[fieldPassword])}
	}
}

func (m Model) startAnswer() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.inputs[fieldQuestion].Value())
	if q == "" || m.answering {
		return m, nil
	}
	m.answering = true
	m.viewport.SetContent("Generating answer...")
	ctx, port := m.ctx, m.port
	return m, func() tea.Msg {
		return answerDoneMsg{question: q, answer: port.GenerateAnswer(ctx, q)}
	}
}

func (m Model) setFocus(i int) Model {
	m.inputs[m.focus].Blur()
	m.focus = (i + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()
	return m
}

// View renders the form, status line and answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Web QA over Zilliz Cloud"))
	b.WriteString("\n")
	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("load status: " + m.status))
	b.WriteString("\n")
	b.WriteString(answerBoxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: next field  ctrl+l: load data  enter: generate  ctrl+c: quit"))
	return b.String()
}

func (m Model) renderAnswer() string {
	if m.answer == "" {
		return "No answer yet."
	}
	return highlightBestSentence(m.answer, m.question)
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// highlightBestSentence emphasizes the answer sentence sharing the most words
// with the question.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.TrimSpace(text)
	}
	bestIdx, bestScore := 0, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return strings.TrimSpace(text)
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sent = highlightStyle.Render(sent)
		}
		sentences[i] = sent
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
