package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// EntryItem wraps a stored response for display in the list
// Implements list.Item
type EntryItem struct {
	Key         string
	StatusCode  int
	ContentType string
	Size        int
	Header      map[string][]string
	Preview     string
	IsEvicted   bool
}

// Path is the key's path and query, or the full key for cross-origin entries.
func (i EntryItem) Path(origin string) string {
	if origin != "" && strings.HasPrefix(i.Key, origin) {
		if u, err := url.Parse(i.Key); err == nil {
			return u.RequestURI()
		}
	}
	return i.Key
}

func (i EntryItem) Title() string {
	return i.Key
}

func (i EntryItem) Description() string {
	if i.IsEvicted {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Render("[Evict]")
	}
	contentType := i.ContentType
	if contentType == "" {
		contentType = "unknown type"
	}
	return fmt.Sprintf("%d · %s · %s", i.StatusCode, contentType, FormatSize(i.Size))
}

func (i EntryItem) ToggleEvicted() EntryItem {
	i.IsEvicted = !i.IsEvicted
	return i
}

func (i EntryItem) FilterValue() string {
	return i.Key + " " + i.ContentType
}

// FormatSize renders a byte count for humans.
func FormatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
