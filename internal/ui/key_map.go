package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	edit      key.Binding
	language  key.Binding
	diarize   key.Binding
	history   key.Binding
	refresh   key.Binding
	delete    key.Binding
	deleteAll key.Binding
	yes       key.Binding
	no        key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		edit:      key.NewBinding(key.WithKeys("e", "i"), key.WithHelp("e", "edit path")),
		language:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "language")),
		diarize:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "diarization")),
		history:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		delete:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		deleteAll: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete all")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:        key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.language, k.diarize, k.edit, k.history},
		{k.refresh, k.delete, k.deleteAll},
		{k.yes, k.no, k.quit},
	}
}
