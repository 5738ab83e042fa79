package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings the queue workflow surfaces in its help lines.
// List navigation itself belongs to the bubbles list component.
type keyMap struct {
	enter   key.Binding
	queue   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		queue:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "queue")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "queue it")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "queue another")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
