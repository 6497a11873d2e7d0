package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/civicmatch/civic-match/internal/tui/models"
)

// EntryPreviewModal shows the status, headers and the start of the body of a
// stored response.
type EntryPreviewModal struct {
	viewport viewport.Model
}

// NewEntryPreviewModal creates a modal for item sized to the terminal.
func NewEntryPreviewModal(item models.EntryItem, width, height int) EntryPreviewModal {
	vp := viewport.New(width, height)
	vp.SetContent(renderEntry(item))
	return EntryPreviewModal{viewport: vp}
}

// Update scrolls the preview.
func (m EntryPreviewModal) Update(msg tea.Msg) (EntryPreviewModal, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// SetSize resizes the preview.
func (m *EntryPreviewModal) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

// View renders the modal with a header for title.
func (m EntryPreviewModal) View(title string) string {
	return fmt.Sprintf(
		"%s\n\n%s\n\n%s",
		previewHeaderStyle.Render("Preview "+title),
		m.viewport.View(),
		"(esc) Back",
	)
}

func renderEntry(item models.EntryItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Status: %d\nSize:   %s\n\n", item.StatusCode, models.FormatSize(item.Size))

	names := make([]string, 0, len(item.Header))
	for name := range item.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "%s: %s\n", name, strings.Join(item.Header[name], ", "))
	}

	if item.Preview != "" {
		sb.WriteString("\n")
		sb.WriteString(item.Preview)
	}
	return sb.String()
}
