// Package picker shows a filterable selection list of candidates and
// reports the accepted subset. Filtering as the user types goes
// through the ranking engine's local scorer, so project directories
// surface together with their subdirectories.
package picker

import (
	"fmt"

	"dirscout/internal/discover"
	"dirscout/internal/rank"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	selectedMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	workspaceTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

// item adapts a candidate to the list widget.
type item struct {
	candidate discover.Candidate
	selected  bool
}

func (i item) Title() string {
	title := i.candidate.Label
	if i.candidate.Kind == discover.KindWorkspaceFile {
		title += " " + workspaceTagStyle.Render("[workspace]")
	}
	if i.selected {
		title = selectedMarkStyle.Render("● ") + title
	}
	return title
}

func (i item) Description() string { return i.candidate.Description }

// FilterValue is the searchable text; the ranking filter sees paths,
// not labels, so descendants of a matched directory stay rankable.
func (i item) FilterValue() string { return i.candidate.Path }

type model struct {
	list     list.Model
	multi    bool
	accepted []discover.Candidate
	done     bool
}

type keyMap struct {
	toggle key.Binding
	accept key.Binding
}

var keys = keyMap{
	toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	accept: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept")),
}

func newModel(candidates []discover.Candidate, title string, multi bool) model {
	items := make([]list.Item, len(candidates))
	for i, c := range candidates {
		items[i] = item{candidate: c}
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.Filter = rankedFilter
	l.AdditionalShortHelpKeys = func() []key.Binding {
		if multi {
			return []key.Binding{keys.toggle, keys.accept}
		}
		return []key.Binding{keys.accept}
	}

	return model{list: l, multi: multi}
}

// rankedFilter delegates list filtering to the ranking engine's local
// scorer so typed queries order by relevance, not raw fuzzy distance.
func rankedFilter(term string, targets []string) []list.Rank {
	indexes := rank.FilterTargets(term, targets)
	ranks := make([]list.Rank, len(indexes))
	for i, idx := range indexes {
		ranks[i] = list.Rank{Index: idx}
	}
	return ranks
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case msg.String() == "ctrl+c", msg.String() == "q", msg.String() == "esc":
			m.accepted = nil
			m.done = true
			return m, tea.Quit

		case m.multi && key.Matches(msg, keys.toggle):
			if it, ok := m.list.SelectedItem().(item); ok {
				it.selected = !it.selected
				return m, m.list.SetItem(m.list.GlobalIndex(), it)
			}
			return m, nil

		case key.Matches(msg, keys.accept):
			m.accepted = m.collect()
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.done {
		return ""
	}
	return m.list.View()
}

// collect returns the toggled items, or the cursor item when nothing
// was toggled (or in single-select mode).
func (m model) collect() []discover.Candidate {
	if m.multi {
		var out []discover.Candidate
		for _, li := range m.list.Items() {
			if it, ok := li.(item); ok && it.selected {
				out = append(out, it.candidate)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if it, ok := m.list.SelectedItem().(item); ok {
		return []discover.Candidate{it.candidate}
	}
	return nil
}

// Pick runs the interactive picker and returns the accepted subset. A
// cancelled picker returns an empty slice and no error.
func Pick(candidates []discover.Candidate, title string, multi bool) ([]discover.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	program := tea.NewProgram(newModel(candidates, title, multi), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("picker failed: %w", err)
	}
	m, ok := final.(model)
	if !ok {
		return nil, nil
	}
	return m.accepted, nil
}
