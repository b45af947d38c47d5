package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Toggle key.Binding
	Submit key.Binding
	Cancel key.Binding
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Back   key.Binding
	Quit   key.Binding
	Force  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "login")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel login")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:   key.NewBinding(key.WithKeys("esc", "backspace", "enter"), key.WithHelp("esc", "back")),
		Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Force:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// pageHelp adapts the bindings relevant to one page to help.KeyMap.
type pageHelp []key.Binding

func (h pageHelp) ShortHelp() []key.Binding { return h }

func (h pageHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (k keyMap) loginHelp(authenticating bool) pageHelp {
	if authenticating {
		return pageHelp{k.Cancel, k.Force}
	}
	return pageHelp{k.Next, k.Toggle, k.Submit, k.Force}
}

func (k keyMap) menuHelp() pageHelp {
	return pageHelp{k.Up, k.Down, k.Open, k.Quit}
}

func (k keyMap) pageHelp() pageHelp {
	return pageHelp{k.Back, k.Quit}
}
