package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	Reveal       key.Binding
	Toggle       key.Binding
	CollapseAll  key.Binding
	ExpandAll    key.Binding
	Copy         key.Binding
	Refresh      key.Binding
	ToggleMethod key.Binding
	ToggleSide   key.Binding
	Filter       key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Top:          key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:       key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Reveal:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "reveal")),
		Toggle:       key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "fold")),
		CollapseAll:  key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "collapse all")),
		ExpandAll:    key.NewBinding(key.WithKeys("Z"), key.WithHelp("Z", "expand all")),
		Copy:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		ToggleMethod: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "method")),
		ToggleSide:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prefix/suffix")),
		Filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Down, k.Reveal, k.Toggle, k.CollapseAll, k.Copy, k.Refresh, k.ToggleMethod, k.ToggleSide, k.Filter, k.Quit}
}
