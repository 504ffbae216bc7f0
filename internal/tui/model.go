package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragcompare/internal/domain"
)

// Queryer is the TUI-facing subset of a pipeline.
type Queryer interface {
	Name() string
	Query(ctx context.Context, question string) (domain.QueryResult, error)
}

type paneResult struct {
	result domain.QueryResult
	err    error
}

type answersMsg struct {
	question string
	naive    paneResult
	advanced paneResult
}

// Model is the Bubble Tea model: one query box driving two answer
// panes, naive strategy on the left and advanced on the right.
type Model struct {
	naive    Queryer
	advanced Queryer

	input     textinput.Model
	leftPane  viewport.Model
	rightPane viewport.Model

	summary  string
	status   string
	querying bool
	ready    bool
	width    int
}

func New(naive, advanced Queryer, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		naive:     naive,
		advanced:  advanced,
		input:     ti,
		leftPane:  viewport.New(0, 0),
		rightPane: viewport.New(0, 0),
		summary:   summary,
		status:    "Indexes ready. Ask away.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, ph := paneStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, pane titles, query box, status
		vh := msg.Height - reserved - ph
		if vh < 3 {
			vh = 3
		}
		pw := paneWidth(msg.Width)
		m.leftPane.Width = pw
		m.leftPane.Height = vh
		m.rightPane.Width = pw
		m.rightPane.Height = vh
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.querying {
				m.querying = true
				m.status = fmt.Sprintf("Running both strategies for %q...", q)
				return m, queryBoth(m.naive, m.advanced, q)
			}
		case "up":
			m.leftPane.LineUp(1)
			m.rightPane.LineUp(1)
			return m, nil
		case "down":
			m.leftPane.LineDown(1)
			m.rightPane.LineDown(1)
			return m, nil
		}

	case answersMsg:
		m.querying = false
		m.status = fmt.Sprintf("Answers for %q", msg.question)
		m.leftPane.SetContent(renderPane(msg.naive))
		m.rightPane.SetContent(renderPane(msg.advanced))
		m.leftPane.GotoTop()
		m.rightPane.GotoTop()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the comparison layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Strategy Comparison")
	summary := summaryStyle.Render(m.summary)

	pw := paneWidth(m.width)
	left := lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Width(pw).Render(m.naive.Name()),
		paneStyle.Width(pw).Render(m.leftPane.View()),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Width(pw).Render(m.advanced.Name()),
		paneStyle.Width(pw).Render(m.rightPane.View()),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + panes + "\n" + input + "\n" + status
}

// queryBoth runs the two strategies concurrently and delivers both
// outcomes in a single message.
func queryBoth(naive, advanced Queryer, question string) tea.Cmd {
	return func() tea.Msg {
		msg := answersMsg{question: question}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			msg.naive.result, msg.naive.err = naive.Query(context.Background(), question)
		}()
		go func() {
			defer wg.Done()
			msg.advanced.result, msg.advanced.err = advanced.Query(context.Background(), question)
		}()
		wg.Wait()
		return msg
	}
}

func renderPane(p paneResult) string {
	if p.err != nil {
		return errorStyle.Render("Error: " + p.err.Error())
	}
	var b strings.Builder
	b.WriteString(p.result.Answer)
	if len(p.result.Candidates) > 0 {
		b.WriteString("\n\n")
		b.WriteString(sourcesTitleStyle.Render("Sources"))
		for i, c := range p.result.Candidates {
			b.WriteString(fmt.Sprintf("\n%d. %s (score %.3f", i+1, c.Payload.SourceID, c.Score))
			if c.RelevanceScore != nil {
				b.WriteString(fmt.Sprintf(", relevance %.3f", *c.RelevanceScore))
			}
			b.WriteString(")")
		}
	}
	return b.String()
}

func paneWidth(total int) int {
	fw, _ := paneStyle.GetFrameSize()
	w := total/2 - fw
	if w < 20 {
		w = 20
	}
	return w
}

var (
	paneStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	paneTitleStyle    = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	queryBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	summaryStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sourcesTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
