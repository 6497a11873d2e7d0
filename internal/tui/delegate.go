package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/civicmatch/civic-match/internal/tui/models"
)

// newItemDelegate returns a list.DefaultDelegate with custom update and help functions.
func newItemDelegate(keys *delegateKeyMap) list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.UpdateFunc = func(msg tea.Msg, m *list.Model) tea.Cmd {
		item, ok := m.SelectedItem().(models.EntryItem)
		if !ok {
			return nil
		}

		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch {
			case key.Matches(msg, keys.evict):
				updatedItem := item.ToggleEvicted()
				m.SetItem(m.Index(), updatedItem)
				if updatedItem.IsEvicted {
					return m.NewStatusMessage(statusMessageStyle("Marked " + item.Title() + " for eviction"))
				}
				return m.NewStatusMessage(statusMessageStyle("Kept " + item.Title()))
			}
		}
		return nil
	}

	help := []key.Binding{keys.evict}

	d.ShortHelpFunc = func() []key.Binding {
		return help
	}

	d.FullHelpFunc = func() [][]key.Binding {
		return [][]key.Binding{help}
	}

	return d
}

// delegateKeyMap holds key bindings for list item actions.
type delegateKeyMap struct {
	evict key.Binding
}

// newDelegateKeyMap creates a new delegateKeyMap with default bindings.
func newDelegateKeyMap() *delegateKeyMap {
	return &delegateKeyMap{
		evict: key.NewBinding(
			key.WithKeys("x", "backspace"),
			key.WithHelp("x", "Toggle eviction"),
		),
	}
}
