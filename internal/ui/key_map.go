package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle      key.Binding
	selectAll   key.Binding
	deselectAll key.Binding
	enter       key.Binding
	back        key.Binding
	restart     key.Binding
	quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:      key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		selectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		deselectAll: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "deselect all")),
		enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue")),
		back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		restart:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.selectAll, k.deselectAll},
		{k.enter, k.back},
		{k.restart, k.quit},
	}
}
