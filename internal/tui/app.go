package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/civicmatch/civic-match/internal/tui/models"
)

// AppModel is the main application model that manages page switching
type AppModel struct {
	mainPage   MainPageModel
	listView   ListItemModel
	exportView ExportView
	origin     string
	version    string
	page       string // "main", "list" or "export"
}

// NewAppModel creates the browser for the entries of store. origin and
// version are written to exported precache manifests.
func NewAppModel(store string, stores []StoreSummary, entries []models.EntryItem, origin, version string) AppModel {
	return AppModel{
		mainPage: NewMainPageModel(store, stores),
		listView: NewListItemModel(store, entries),
		origin:   origin,
		version:  version,
		page:     "main",
	}
}

// Init initializes the AppModel
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.mainPage.Init(),
		m.listView.Init(),
	)
}

// Update handles app-level messages and delegates to the appropriate page model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case OpenListItemMsg:
		m.page = "list"
		return m, m.listView.Init()

	case DoneMsg:
		m.page = "export"
		m.exportView = NewExportView(msg.Entries, m.origin, m.version)
		return m, m.exportView.Init()

	case BackToListMsg:
		m.page = "list"
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "esc" && m.page == "list" && m.listView.Idle() {
			m.page = "main"
			return m, nil
		}

	case tea.WindowSizeMsg:
		var cmd tea.Cmd
		var tempModel tea.Model

		tempModel, cmd = m.mainPage.Update(msg)
		m.mainPage = tempModel.(MainPageModel)
		cmds = append(cmds, cmd)

		tempModel, cmd = m.listView.Update(msg)
		m.listView = tempModel.(ListItemModel)
		cmds = append(cmds, cmd)

		tempModel, cmd = m.exportView.Update(msg)
		m.exportView = tempModel.(ExportView)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	var tempModel tea.Model
	switch m.page {
	case "main":
		tempModel, cmd = m.mainPage.Update(msg)
		m.mainPage = tempModel.(MainPageModel)
	case "list":
		tempModel, cmd = m.listView.Update(msg)
		m.listView = tempModel.(ListItemModel)
	case "export":
		tempModel, cmd = m.exportView.Update(msg)
		m.exportView = tempModel.(ExportView)
	}
	return m, cmd
}

// View renders the active page
func (m AppModel) View() string {
	switch m.page {
	case "main":
		return m.mainPage.View()
	case "export":
		return m.exportView.View()
	default: // list
		return m.listView.View()
	}
}

// Evictions returns the keys marked for eviction once the user finished,
// nil otherwise.
func (m AppModel) Evictions() []string {
	if !m.IsFinished() {
		return nil
	}
	var keys []string
	for _, e := range m.exportView.entries {
		if e.IsEvicted {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// IsFinished checks if the user has completed the flow on the export page
func (m AppModel) IsFinished() bool {
	return m.exportView.Success
}
