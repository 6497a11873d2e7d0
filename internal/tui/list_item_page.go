package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/civicmatch/civic-match/internal/tui/models"
)

// listKeyMap holds key bindings for the list actions.
type listKeyMap struct {
	preview key.Binding
	close   key.Binding
	finish  key.Binding
	quit    key.Binding
}

// DoneMsg is sent when the user finishes reviewing the entries
type DoneMsg struct {
	Entries []*models.EntryItem
}

// newListKeyMap creates a new listKeyMap with default bindings.
func newListKeyMap() *listKeyMap {
	return &listKeyMap{
		preview: key.NewBinding(
			key.WithKeys("P", "p"),
			key.WithHelp("P", "Preview"),
		),
		close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close preview"),
		),
		finish: key.NewBinding(
			key.WithKeys("F", "f"),
			key.WithHelp("F", "Finish"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
	}
}

// ListItemModel lists the entries of one store
type ListItemModel struct {
	list       list.Model
	keys       *listKeyMap
	previewing bool
	preview    EntryPreviewModal
	width      int
	height     int
}

// Init returns the initial command for the list model.
func (m ListItemModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the list and the preview modal.
func (m ListItemModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.previewing {
		return m.handlePreviewModeUpdate(msg)
	}
	return m.handleListModeUpdate(msg)
}

func (m ListItemModel) handlePreviewModeUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.close) {
			m.previewing = false
			return m, nil
		}
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.resize(msg)
	}
	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m ListItemModel) handleListModeUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// keys typed into the filter belong to the filter
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.preview):
			if item, ok := m.list.SelectedItem().(models.EntryItem); ok {
				m.previewing = true
				m.preview = NewEntryPreviewModal(item, m.width, m.height-4)
				return m, nil
			}
		case key.Matches(msg, m.keys.finish):
			return m, func() tea.Msg {
				return DoneMsg{Entries: m.GetEntries()}
			}
		}
	case tea.WindowSizeMsg:
		m.resize(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *ListItemModel) resize(msg tea.WindowSizeMsg) {
	h, v := docStyle.GetFrameSize()
	m.width, m.height = msg.Width-h, msg.Height-v
	m.list.SetSize(m.width, m.height)
	m.preview.SetSize(m.width, m.height-4)
}

// View renders either the list or the preview
func (m ListItemModel) View() string {
	if m.previewing {
		return docStyle.Render(m.preview.View(m.list.SelectedItem().(models.EntryItem).Title()))
	}
	return docStyle.Render(m.list.View())
}

// NewListItemModel creates a list of the entries of store
func NewListItemModel(store string, entries []models.EntryItem) ListItemModel {
	listKeys := newListKeyMap()

	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = e
	}
	delegate := newItemDelegate(newDelegateKeyMap())

	l := list.New(items, delegate, 0, 0)
	l.Title = titleStyle.Render("Entries of " + store)
	l.SetShowFilter(true)

	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			listKeys.preview,
			listKeys.finish,
			listKeys.quit,
		}
	}
	return ListItemModel{list: l, keys: listKeys}
}

// GetEntries returns every entry with its eviction mark, ignoring the filter
func (m ListItemModel) GetEntries() []*models.EntryItem {
	all := m.list.Items()
	result := make([]*models.EntryItem, len(all))
	for i, item := range all {
		entry := item.(models.EntryItem)
		result[i] = &entry
	}
	return result
}

// Idle reports whether the list is neither previewing nor filtering.
func (m ListItemModel) Idle() bool {
	return !m.previewing && m.list.FilterState() == list.Unfiltered
}
