package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Open     key.Binding
	New      key.Binding
	Delete   key.Binding
	Save     key.Binding
	Back     key.Binding
	Tab      key.Binding
	Search   key.Binding
	Clear    key.Binding
	Preview  key.Binding
	Export   key.Binding
	Editor   key.Binding
	Copy     key.Binding
	Password key.Binding
	Quit     key.Binding
	ForceQ   key.Binding
}

var keys = keyMap{
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
	New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "title/body")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear search")),
	Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
	Export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
	Editor:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "$EDITOR")),
	Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	Password: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "passphrase")),
	Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQ:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+":"+h.Desc)
	}
	return strings.Join(parts, "  ")
}
