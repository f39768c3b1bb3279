package main

import (
	tea "github.com/charmbracelet/bubbletea"
)

// programNavigator feeds knob navigation into the running tea.Program as
// ordinary key presses.
type programNavigator struct {
	send func(tea.Msg)
}

func newProgramNavigator(p *tea.Program) *programNavigator {
	return &programNavigator{send: p.Send}
}

func (n *programNavigator) ForwardKey(dir NavDirection) {
	msg, ok := keyMsgForSymbol(dir)
	if !ok {
		return
	}
	n.send(msg)
}

func (n *programNavigator) ForceRedraw() {
	n.send(redrawMsg{})
}

// keyMsgForSymbol maps a navigation symbol to the key press the UI expects.
func keyMsgForSymbol(dir NavDirection) (tea.KeyMsg, bool) {
	switch dir {
	case NavUp:
		return tea.KeyMsg{Type: tea.KeyUp}, true
	case NavDown:
		return tea.KeyMsg{Type: tea.KeyDown}, true
	case NavSelect:
		return tea.KeyMsg{Type: tea.KeyEnter}, true
	case NavQuit:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, true
	default:
		return tea.KeyMsg{}, false
	}
}
