// Package ui implements the interactive terminal interface: a prompt list
// that drills into revision history, diffs, and changelogs.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/promptdiff/internal/models"
	"github.com/dpshade/promptdiff/internal/service"
)

type view int

const (
	viewPrompts view = iota
	viewHistory
	viewDiff
	viewChangelog
)

// Model is the main TUI model.
type Model struct {
	service *service.Service

	view     view
	prompts  list.Model
	history  list.Model
	viewport viewport.Model

	current   string // selected prompt name
	statusMsg string
	err       error

	width  int
	height int
	ready  bool
}

// revisionItem adapts a revision to the bubbles list.
type revisionItem struct {
	rev *models.Revision
}

func (r revisionItem) FilterValue() string { return r.rev.Label() }

func (r revisionItem) Title() string {
	title := r.rev.Label()
	if r.rev.Tag != "" {
		title += " (" + r.rev.Tag + ")"
	}
	return title
}

func (r revisionItem) Description() string {
	parts := []string{r.rev.CreatedAt.Format("2006-01-02 15:04"), r.rev.ContentHash}
	if r.rev.Message != "" {
		parts = append(parts, r.rev.Message)
	}
	return strings.Join(parts, "  ")
}

// NewModel creates the TUI model.
func NewModel(svc *service.Service) *Model {
	initializeColors()
	initializeStyles()

	prompts := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	prompts.Title = "Prompts"
	prompts.SetShowStatusBar(false)

	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.SetShowStatusBar(false)

	return &Model{
		service: svc,
		prompts: prompts,
		history: history,
	}
}

// Messages

type promptsLoadedMsg struct {
	infos []models.PromptInfo
	err   error
}

type historyLoadedMsg struct {
	name      string
	revisions []*models.Revision
	err       error
}

type contentReadyMsg struct {
	view    view
	content string
	err     error
}

func (m *Model) Init() tea.Cmd {
	return m.loadPrompts()
}

func (m *Model) loadPrompts() tea.Cmd {
	return func() tea.Msg {
		infos, err := m.service.ListPromptInfos()
		return promptsLoadedMsg{infos: infos, err: err}
	}
}

func (m *Model) loadHistory(name string) tea.Cmd {
	return func() tea.Msg {
		revisions, err := m.service.ListVersions(name)
		return historyLoadedMsg{name: name, revisions: revisions, err: err}
	}
}

func (m *Model) loadDiff(name string, version int) tea.Cmd {
	return func() tea.Msg {
		result, err := m.service.Diff(context.Background(), name,
			fmt.Sprintf("%d", version-1), fmt.Sprintf("%d", version))
		if err != nil {
			return contentReadyMsg{view: viewDiff, err: err}
		}
		return contentReadyMsg{view: viewDiff, content: formatDiff(name, result)}
	}
}

func (m *Model) loadChangelog(name string) tea.Cmd {
	return func() tea.Msg {
		markdown, err := m.service.Changelog(context.Background(), name, 0)
		if err != nil {
			return contentReadyMsg{view: viewChangelog, err: err}
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(90))
		if err == nil {
			if rendered, rerr := r.Render(markdown); rerr == nil {
				markdown = rendered
			}
		}
		return contentReadyMsg{view: viewChangelog, content: markdown}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.prompts.SetSize(msg.Width-4, msg.Height-4)
		m.history.SetSize(msg.Width-4, msg.Height-4)
		m.viewport = viewport.New(msg.Width-6, msg.Height-6)
		m.ready = true
		return m, nil

	case promptsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, len(msg.infos))
		for i, info := range msg.infos {
			items[i] = info
		}
		m.prompts.SetItems(items)
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.current = msg.name
		m.history.Title = "History: " + msg.name
		items := make([]list.Item, 0, len(msg.revisions))
		// Newest first.
		for i := len(msg.revisions) - 1; i >= 0; i-- {
			items = append(items, revisionItem{rev: msg.revisions[i]})
		}
		m.history.SetItems(items)
		m.view = viewHistory
		return m, nil

	case contentReadyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.viewport.SetContent(msg.content)
		m.viewport.GotoTop()
		m.view = msg.view
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, m.updateActive(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let an active list filter swallow keys first.
	if m.view == viewPrompts && m.prompts.FilterState() == list.Filtering {
		return m, m.updateActive(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.view == viewPrompts {
			return m, tea.Quit
		}
		m.back()
		return m, nil

	case "esc":
		m.back()
		return m, nil

	case "enter":
		switch m.view {
		case viewPrompts:
			if info, ok := m.prompts.SelectedItem().(models.PromptInfo); ok {
				return m, m.loadHistory(info.Name)
			}
		case viewHistory:
			if item, ok := m.history.SelectedItem().(revisionItem); ok {
				if item.rev.Version > 1 {
					return m, m.loadDiff(m.current, item.rev.Version)
				}
				m.statusMsg = "v1 has no predecessor to diff against"
			}
		}
		return m, nil

	case "c":
		if m.view == viewHistory {
			return m, m.loadChangelog(m.current)
		}

	case "r":
		if m.view == viewPrompts {
			return m, m.loadPrompts()
		}
	}

	return m, m.updateActive(msg)
}

func (m *Model) back() {
	m.err = nil
	m.statusMsg = ""
	switch m.view {
	case viewHistory:
		m.view = viewPrompts
	case viewDiff, viewChangelog:
		m.view = viewHistory
	}
}

func (m *Model) updateActive(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.view {
	case viewPrompts:
		m.prompts, cmd = m.prompts.Update(msg)
	case viewHistory:
		m.history, cmd = m.history.Update(msg)
	case viewDiff, viewChangelog:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return cmd
}

func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var body, help string
	switch m.view {
	case viewPrompts:
		body = m.prompts.View()
		help = "enter: history  /: filter  r: reload  q: quit"
	case viewHistory:
		body = m.history.View()
		help = "enter: diff against previous  c: changelog  esc: back"
	case viewDiff:
		body = styleTitle.Render("Diff: "+m.current) + "\n" + styleViewport.Render(m.viewport.View())
		help = "↑/↓: scroll  esc: back"
	case viewChangelog:
		body = styleTitle.Render("Changelog: "+m.current) + "\n" + styleViewport.Render(m.viewport.View())
		help = "↑/↓: scroll  esc: back"
	}

	var footer []string
	if m.err != nil {
		footer = append(footer, styleError.Render(m.err.Error()))
	}
	if m.statusMsg != "" {
		footer = append(footer, styleMetadata.Render(m.statusMsg))
	}
	footer = append(footer, styleHelp.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, body, strings.Join(footer, "\n"))
}

// formatDiff renders a diff result with per-line coloring for the viewport.
func formatDiff(name string, result *models.DiffResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%d..v%d\n", name, result.OldVersion, result.NewVersion)
	fmt.Fprintf(&b, "Text similarity: %.1f%%", result.SimilarityRatio*100)
	if result.SemanticSimilarity != nil {
		fmt.Fprintf(&b, "   Semantic similarity: %.1f%%", *result.SemanticSimilarity*100)
	}
	fmt.Fprintf(&b, "   +%d -%d\n\n", result.Additions, result.Removals)

	if !result.HasChanges() {
		b.WriteString("No changes.\n")
		return b.String()
	}
	for _, line := range result.Lines {
		text := strings.TrimRight(line.Text, "\n")
		switch line.Op {
		case models.DiffInsert:
			b.WriteString(styleInsert.Render("+ "+text) + "\n")
		case models.DiffDelete:
			b.WriteString(styleDelete.Render("- "+text) + "\n")
		default:
			b.WriteString("  " + text + "\n")
		}
	}
	return b.String()
}
