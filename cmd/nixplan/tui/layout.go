package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixplan/nixplan/pkg/nixplan/disk"
)

// selectedItem returns the layout entry under the cursor.
func (m *Model) selectedItem() disk.Item {
	idx := m.layoutTable.Cursor()
	layout := m.current.Layout()
	if idx < 0 || idx >= len(layout) {
		return nil
	}
	return layout[idx]
}

// refreshLayout re-renders the layout table after a mutation.
func (m *Model) refreshLayout() {
	rows := layoutRows(m.current)
	m.layoutTable.SetRows(rows)
	if cur := m.layoutTable.Cursor(); cur >= len(rows) && len(rows) > 0 {
		m.layoutTable.SetCursor(len(rows) - 1)
	}
}

func (m Model) handleLayoutKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.statusErr = false

	switch msg.String() {
	case "esc":
		m.state = StateDisks
		return m, nil

	case "n":
		region, ok := m.selectedItem().(*disk.FreeSpace)
		if !ok {
			m.status = "select a free-space row to create a partition in"
			return m, nil
		}
		m.wizard = newWizard(m.current, region, m.options.Config.Filesystem)
		m.state = StateWizard
		return m, nil

	case "d":
		p, ok := m.selectedItem().(*disk.Partition)
		if !ok {
			m.status = "free space cannot be deleted"
			return m, nil
		}
		if p.Status == disk.StatusCreate {
			// Planned partitions never existed on disk: remove outright.
			if err := m.current.RemovePartition(p.ID()); err != nil {
				m.status = err.Error()
				m.statusErr = true
			}
		} else {
			p.Status = disk.StatusDelete
			m.current.CalculateFreeSpace()
		}
		m.refreshLayout()
		return m, nil

	case "m":
		p, ok := m.selectedItem().(*disk.Partition)
		if !ok || p.Status != disk.StatusExists {
			m.status = "only existing partitions can be marked for reformat"
			return m, nil
		}
		p.Status = disk.StatusModify
		m.refreshLayout()
		return m, nil

	case "u":
		p, ok := m.selectedItem().(*disk.Partition)
		if !ok || p.Status != disk.StatusModify {
			m.status = "nothing to unmark"
			return m, nil
		}
		p.Status = disk.StatusExists
		m.refreshLayout()
		return m, nil

	case "b", "e", "B":
		p, ok := m.selectedItem().(*disk.Partition)
		if !ok {
			m.status = "free space has no flags"
			return m, nil
		}
		flag := map[string]string{"b": "boot", "e": "esp", "B": "bls_boot"}[msg.String()]
		if p.HasFlag(flag) {
			p.RemoveFlag(flag)
		} else {
			p.AddFlag(flag)
		}
		m.refreshLayout()
		return m, nil

	case "a":
		m.current.UseDefaultLayout(m.options.Config.Filesystem)
		m.refreshLayout()
		m.status = "applied default boot + root layout"
		return m, nil

	case "r":
		m.current.ResetLayout()
		m.refreshLayout()
		m.status = "layout reset to the discovered state"
		return m, nil

	case "enter":
		m.confirmFocused = 0
		m.state = StateConfirm
		return m, nil
	}

	var cmd tea.Cmd
	m.layoutTable, cmd = m.layoutTable.Update(msg)
	return m, cmd
}

func (m Model) viewLayout() string {
	title := titleStyle.Render(fmt.Sprintf("Partition layout: /dev/%s (%s)",
		m.current.Name(), disk.FormatSize(m.current.SizeBytes())))

	body := m.layoutTable.View()

	var status string
	if m.status != "" {
		style := mutedTextStyle
		if m.statusErr {
			style = errorTextStyle
		}
		status = "\n" + style.Render(m.status)
	}

	help := mutedTextStyle.Render(
		"n: new in free space • d: delete • m: mark reformat • u: unmark\n" +
			"b/e/B: toggle boot/esp/bls_boot • a: default layout • r: reset\n" +
			"enter: review plan • esc: back")
	return outerBoxStyle.Render(title + "\n\n" + body + status + "\n\n" + help)
}
