package ui

import tea "github.com/charmbracelet/bubbletea"

// Run blocks until the user quits.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
