package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StoreSummary describes one cache store on the main page.
type StoreSummary struct {
	Name    string
	Entries int
	Current bool
}

// MainPageKeyMap holds key bindings for the main page actions
type MainPageKeyMap struct {
	open key.Binding
	quit key.Binding
}

func newMainPageKeyMap() *MainPageKeyMap {
	return &MainPageKeyMap{
		open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Browse entries"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("ctrl+c/q", "Quit"),
		),
	}
}

// MainPageModel represents the main landing page of the application
type MainPageModel struct {
	keys     *MainPageKeyMap
	width    int
	height   int
	store    string
	stores   []StoreSummary
}

// OpenListItemMsg is sent when the user chooses to browse the store
type OpenListItemMsg struct {
	Store string
}

// NewMainPageModel creates a new main page model for browsing store
func NewMainPageModel(store string, stores []StoreSummary) MainPageModel {
	return MainPageModel{
		keys:   newMainPageKeyMap(),
		store:  store,
		stores: stores,
	}
}

// Init initializes the model
func (m MainPageModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the main page
func (m MainPageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.open):
			return m, func() tea.Msg {
				return OpenListItemMsg{Store: m.store}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// View renders the main page
func (m MainPageModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render("Civic Match cache browser")

	descStyle := lipgloss.NewStyle().
		Padding(1, 0).
		Width(m.width - 4).
		Align(lipgloss.Center)

	description := descStyle.Render(
		"Browse the responses stored by the caching worker.\n" +
			"Mark entries for eviction and export the rest as a precache manifest.\n\n" +
			"The caching worker has " + pluralize(len(m.stores), "store") + ".",
	)

	storeListStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#1d3557")).
		Padding(1, 1).
		Width(m.width - 10).
		Align(lipgloss.Left)

	var storeList strings.Builder
	for _, s := range m.stores {
		marker := " "
		if s.Name == m.store {
			marker = ">"
		}
		current := ""
		if s.Current {
			current = " (current)"
		}
		storeList.WriteString(fmt.Sprintf("%s %s%s: %s\n", marker, s.Name, current, pluralize(s.Entries, "entry")))
	}

	instructionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#e63946")).
		Padding(1, 0).
		Width(m.width - 4).
		Align(lipgloss.Center)

	instruction := instructionStyle.Render("Press ENTER to browse " + m.store)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#626262", Dark: "#A49FA5"}).
		Width(m.width - 4).
		Align(lipgloss.Center)

	help := helpStyle.Render("Press q or Ctrl+C to quit")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		title,
		"",
		description,
		"",
		storeListStyle.Render(storeList.String()),
		"",
		instruction,
		"",
		help,
	)

	return docStyle.Render(content)
}

// pluralize returns the count followed by the noun, pluralized when needed
func pluralize(count int, singular string) string {
	if count == 1 {
		return "1 " + singular
	}
	if strings.HasSuffix(singular, "y") {
		return fmt.Sprintf("%d %sies", count, strings.TrimSuffix(singular, "y"))
	}
	return fmt.Sprintf("%d %ss", count, singular)
}
