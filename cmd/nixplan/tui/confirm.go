package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleConfirmKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "n":
		m.state = StateLayout
		return m, nil

	case "left", "h":
		m.confirmFocused = 0
		return m, nil

	case "right", "l":
		m.confirmFocused = 1
		return m, nil

	case "tab":
		m.confirmFocused = 1 - m.confirmFocused
		return m, nil

	case "y":
		return m, m.writePlan()

	case "enter":
		if m.confirmFocused == 1 {
			return m, m.writePlan()
		}
		m.state = StateLayout
		return m, nil
	}
	return m, nil
}

func (m Model) viewConfirm() string {
	title := titleStyle.Render("Review plan")

	doc, err := m.options.Plan.Document()
	var body string
	if err != nil {
		body = errorTextStyle.Render(err.Error())
	} else {
		body = docBoxStyle.Render(string(doc))
	}

	var warn string
	if !m.options.Plan.Complete() {
		warn = "\n" + mutedTextStyle.Render(
			"Plan is incomplete (users, root password or bootloader missing); it can be finished later.")
	}

	back := "[ Back ]"
	write := "[ Write " + m.options.Output + " ]"
	if m.confirmFocused == 0 {
		back = selectedStyle.Render(back)
	} else {
		write = selectedStyle.Render(write)
	}

	var status string
	if m.status != "" && m.statusErr {
		status = "\n" + errorTextStyle.Render(m.status)
	}

	help := mutedTextStyle.Render("y: write • enter: choose • esc: back")
	return outerBoxStyle.Render(title + "\n\n" + body + warn + status + "\n\n" + back + "  " + write + "\n" + help)
}
