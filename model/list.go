package model

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/electr1fy0/scribe/autosave"
	"github.com/electr1fy0/scribe/storage"
)

type listItem struct {
	note    storage.Note
	unsaved bool
	saving  bool
}

func (i listItem) FilterValue() string { return i.note.Title }

func (i listItem) Title() string {
	title := displayTitle(i.note.Title, i.note.Content)
	switch {
	case i.saving:
		return "(SAVING) " + title
	case i.unsaved:
		return "(UNSAVED) " + title
	}
	return title
}

func (i listItem) Description() string {
	return "updated " + humanize.Time(time.Unix(i.note.Timestamp, 0))
}

// refreshList rebuilds the list items from the last loaded notes, applying
// the search filter and marking notes with live unsaved sessions.
func (m *Model) refreshList() {
	items := make([]list.Item, 0, len(m.notes))
	term := strings.ToLower(m.searchTerm)
	for _, n := range m.notes {
		if term != "" &&
			!strings.Contains(strings.ToLower(n.Title), term) &&
			!strings.Contains(strings.ToLower(n.Content), term) {
			continue
		}
		it := listItem{note: n}
		if s, ok := m.saves.Session(n.ID); ok {
			it.saving = s.State() != autosave.Idle
			it.unsaved = s.Dirty()
		}
		items = append(items, it)
	}
	m.list.SetItems(items)
}

// selectInList moves the list cursor to id if it is visible.
func (m *Model) selectInList(id string) {
	for i, it := range m.list.Items() {
		if it.(listItem).note.ID == id {
			m.list.Select(i)
			return
		}
	}
}

// displayTitle falls back to the first line of the body for untitled notes.
func displayTitle(title, content string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	for _, line := range strings.Split(content, "\n") {
		trim := strings.TrimSpace(line)
		if trim == "" {
			continue
		}
		trim = strings.TrimSpace(strings.TrimLeft(trim, "#"))
		if r := []rune(trim); len(r) > 50 {
			return string(r[:47]) + "..."
		}
		return trim
	}
	return "(untitled)"
}
