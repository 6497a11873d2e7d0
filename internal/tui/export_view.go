package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	cmmodels "github.com/civicmatch/civic-match/internal/models"
	"github.com/civicmatch/civic-match/internal/tui/models"
	"gopkg.in/yaml.v3"
)

// ExportView prompts for a filename and writes the kept same-origin entries
// as a precache manifest
type ExportView struct {
	entries      []*models.EntryItem
	origin       string
	version      string
	textInput    textinput.Model
	err          error
	width        int
	height       int
	exportStatus string
	Success      bool
}

// NewExportView creates a new export view
func NewExportView(entries []*models.EntryItem, origin, version string) ExportView {
	ti := textinput.New()
	ti.Placeholder = "precache.yaml"
	ti.Focus()
	ti.Width = 40

	return ExportView{
		entries:   entries,
		origin:    origin,
		version:   version,
		textInput: ti,
	}
}

// Init initializes the export view
func (m ExportView) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the export view
func (m ExportView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, func() tea.Msg { return BackToListMsg{} }
		case "enter":
			filename := m.textInput.Value()
			if filename == "" {
				// evictions only, nothing exported
				m.Success = true
				return m, tea.Quit
			}
			if !strings.HasSuffix(filename, ".yaml") && !strings.HasSuffix(filename, ".yml") {
				filename += ".yaml"
			}

			if err := ExportPrecacheManifest(m.entries, m.origin, m.version, filename); err != nil {
				m.err = err
				m.exportStatus = fmt.Sprintf("Error exporting: %v", err)
				return m, nil
			}

			m.Success = true
			m.exportStatus = completeMessageStyle(fmt.Sprintf("Successfully exported to %s", filename))
			return m, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tea.Quit()
			})
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View renders the export view
func (m ExportView) View() string {
	var sb strings.Builder

	verticalPadding := (m.height - 6) / 2
	for i := 0; i < verticalPadding; i++ {
		sb.WriteString("\n")
	}

	sb.WriteString(centerText(titleStyle.Render("Finish"), m.width))
	sb.WriteString("\n\n")

	evicted := 0
	for _, e := range m.entries {
		if e.IsEvicted {
			evicted++
		}
	}
	sb.WriteString(centerText(fmt.Sprintf("%s will be evicted on exit.", pluralize(evicted, "entry")), m.width))
	sb.WriteString("\n")
	sb.WriteString(centerText("Export the kept entries as a precache manifest (leave empty to skip):", m.width))
	sb.WriteString("\n")
	sb.WriteString(centerText(m.textInput.View(), m.width))
	sb.WriteString("\n\n")

	if m.exportStatus != "" {
		sb.WriteString(centerText(m.exportStatus, m.width))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(centerText("(esc) Back to entries | (enter) Apply", m.width))

	return sb.String()
}

// BackToListMsg signals to go back to the entry list
type BackToListMsg struct{}

// ExportPrecacheManifest writes the same-origin entries that are not evicted
// to filename in the worker.precache_file format.
func ExportPrecacheManifest(entries []*models.EntryItem, origin, version, filename string) error {
	manifest := cmmodels.PrecacheManifest{
		Version: version,
		Entries: []cmmodels.PrecacheEntry{},
	}
	for _, e := range entries {
		if e.IsEvicted {
			continue
		}
		path := e.Path(origin)
		// cross-origin entries cannot be precached
		if !strings.HasPrefix(path, "/") {
			continue
		}
		manifest.Entries = append(manifest.Entries, cmmodels.PrecacheEntry{Path: path})
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// centerText centers text horizontally
func centerText(text string, width int) string {
	if width <= len(text) {
		return text
	}

	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
