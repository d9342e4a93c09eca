// Package tui is the interactive terminal client for recipe recommendations.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/kondate/internal/cli"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
)

// Recommender is the TUI-facing subset of the pipeline.
type Recommender interface {
	Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendResponse, error)
}

// Options configures a Model.
type Options struct {
	Recommender Recommender
	// Diets are the selectable profile names, in display order.
	Diets []string
	Limit int
	// Initialize, when set, runs once at startup; searching is disabled until it returns nil.
	Initialize func(ctx context.Context) error
}

type focus int

const (
	focusQuery focus = iota
	focusDiets
)

type initDoneMsg struct{ err error }

type resultMsg struct {
	seq  uint64
	resp *models.RecommendResponse
	err  error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	rec      Recommender
	initFn   func(ctx context.Context) error
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	diets      []string
	selected   map[string]bool
	dietCursor int
	focus      focus
	limit      int

	seq       *pipeline.Sequencer
	ready     bool
	loading   bool
	searching bool
	sized     bool

	results []*models.ScoredRecipe
	status  string
}

// New creates a new TUI model instance.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "eggs, spinach, feta"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	m := Model{
		rec:      opts.Recommender,
		initFn:   opts.Initialize,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(0, 0),
		diets:    opts.Diets,
		selected: make(map[string]bool),
		limit:    limit,
		seq:      &pipeline.Sequencer{},
		ready:    opts.Initialize == nil,
		loading:  opts.Initialize != nil,
		status:   "Ready ✓ Type ingredients and press Enter.",
	}
	if m.loading {
		m.status = "Loading…"
	}
	return m
}

// Init starts the cursor blink and, if configured, initialization.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.initFn != nil {
		initFn := m.initFn
		cmds = append(cmds, m.spinner.Tick, func() tea.Msg {
			return initDoneMsg{err: initFn(context.Background())}
		})
	}
	return tea.Batch(cmds...)
}

// Update handles key, window, spinner and result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.sized = true
		_, fh := resultBoxStyle.GetFrameSize()
		reserved := 6 + len(m.diets)/4
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-fh)
		m.viewport.SetContent(m.renderResults())
		return m, nil

	case initDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Failed: " + msg.err.Error()
			return m, nil
		}
		m.ready = true
		m.status = "Ready ✓ Type ingredients and press Enter."
		return m, nil

	case resultMsg:
		// A newer query was issued after this one; its result wins.
		if !m.seq.IsLatest(msg.seq) {
			return m, nil
		}
		m.searching = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.results = msg.resp.Results
			m.status = fmt.Sprintf("%d recipes from %d candidates in %dms",
				len(msg.resp.Results), msg.resp.TotalCandidates, msg.resp.QueryTime)
		}
		m.viewport.SetContent(m.renderResults())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab:
			m.toggleFocus()
			return m, nil
		case tea.KeyPgDown, tea.KeyPgUp:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			return m.submit()
		}
		if m.focus == focusDiets {
			return m.updateDiets(msg), nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == focusQuery && len(m.diets) > 0 {
		m.focus = focusDiets
		m.input.Blur()
		return
	}
	m.focus = focusQuery
	m.input.Focus()
}

func (m Model) updateDiets(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "left", "up", "h", "k":
		m.dietCursor = (m.dietCursor - 1 + len(m.diets)) % len(m.diets)
	case "right", "down", "l", "j":
		m.dietCursor = (m.dietCursor + 1) % len(m.diets)
	case " ", "x":
		name := m.diets[m.dietCursor]
		m.selected[name] = !m.selected[name]
	}
	return m
}

// SelectedDiets returns the active profile names in display order.
func (m Model) SelectedDiets() []string {
	var out []string
	for _, d := range m.diets {
		if m.selected[d] {
			out = append(out, d)
		}
	}
	return out
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.ready {
		if !m.loading {
			return m, nil
		}
		m.status = "Still loading…"
		return m, nil
	}
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		return m, nil
	}

	seq := m.seq.Next()
	m.searching = true
	m.status = "Searching…"
	req := models.RecommendRequest{Query: q, Limit: m.limit, Diets: m.SelectedDiets()}
	rec := m.rec
	search := func() tea.Msg {
		resp, err := rec.Recommend(context.Background(), req)
		return resultMsg{seq: seq, resp: resp, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, search)
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.sized {
		return "Loading..."
	}
	header := titleStyle.Render("kondate") + " " + dimStyle.Render("recipes from what you have")
	query := queryBoxStyle.Render(m.input.View())
	diets := m.renderDiets()
	results := resultBoxStyle.Render(m.viewport.View())

	status := m.status
	if m.loading || m.searching {
		status = m.spinner.View() + " " + status
	}
	help := dimStyle.Render("enter search • tab diets • space toggle • pgup/pgdn scroll • esc quit")
	return strings.Join([]string{header, query, diets, results, statusStyle.Render(status), help}, "\n")
}

func (m Model) renderDiets() string {
	if len(m.diets) == 0 {
		return ""
	}
	parts := make([]string, len(m.diets))
	for i, d := range m.diets {
		box := "[ ]"
		if m.selected[d] {
			box = "[x]"
		}
		item := box + " " + d
		if m.focus == focusDiets && i == m.dietCursor {
			item = cursorStyle.Render(item)
		}
		parts[i] = item
	}
	return "Diets: " + strings.Join(parts, "  ")
}

// instructionWords bounds the instructions preview on a result card.
const instructionWords = 40

func (m Model) renderResults() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	width := max(20, m.viewport.Width-4)
	cards := make([]string, len(m.results))
	for i, r := range m.results {
		title := fmt.Sprintf("%d. %s", r.Rank, r.Recipe.Title)
		score := scoreStyle.Render("Similarity: " + cli.FormatScore(r.Score))
		ingredients := lipgloss.NewStyle().Width(width).Render(strings.Join(r.Recipe.Ingredients, ", "))
		cards[i] = cardTitleStyle.Render(title) + "\n" + score + "\n" + ingredients
		if r.Recipe.Instructions != "" {
			cards[i] += "\n" + dimStyle.Width(width).Render(cli.TruncateWords(r.Recipe.Instructions, instructionWords))
		}
	}
	return strings.Join(cards, "\n\n")
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cursorStyle    = lipgloss.NewStyle().Reverse(true)
	scoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cardTitleStyle = lipgloss.NewStyle().Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
