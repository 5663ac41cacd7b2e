package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleDisksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "R":
		return m, m.loadDisks()

	case "enter":
		idx := m.diskTable.Cursor()
		if idx < 0 || idx >= len(m.disks) {
			return m, nil
		}
		m.current = m.disks[idx]
		m.options.Plan.Drive = m.current
		m.layoutTable.SetRows(layoutRows(m.current))
		m.layoutTable.SetCursor(0)
		m.status = ""
		m.state = StateLayout
		return m, nil
	}

	var cmd tea.Cmd
	m.diskTable, cmd = m.diskTable.Update(msg)
	return m, cmd
}

func (m Model) viewDisks() string {
	title := titleStyle.Render("Select a disk")

	var body string
	switch {
	case m.loadErr != nil:
		body = errorTextStyle.Render(fmt.Sprintf("enumeration failed: %v", m.loadErr))
	case len(m.disks) == 0:
		body = mutedTextStyle.Render("No candidate disks found. Disks hosting the running system are hidden.")
	default:
		body = m.diskTable.View()
	}

	help := mutedTextStyle.Render("enter: edit layout • R: rescan • q: quit")
	return outerBoxStyle.Render(title + "\n\n" + body + "\n\n" + help)
}
