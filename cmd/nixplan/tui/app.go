package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nixplan/nixplan/pkg/nixplan/config"
	"github.com/nixplan/nixplan/pkg/nixplan/disk"
	"github.com/nixplan/nixplan/pkg/nixplan/lsblk"
	"github.com/nixplan/nixplan/pkg/nixplan/plan"
)

// AppState represents the current page of the installer.
type AppState int

const (
	StateDisks AppState = iota
	StateLayout
	StateWizard
	StateConfirm
	StateDone
)

// Options configures the TUI application.
type Options struct {
	Plan    *plan.Plan
	Config  *config.Config
	Watcher *lsblk.Watcher
	Output  string
}

// Model is the main Bubble Tea model for the nixplan TUI.
type Model struct {
	state   AppState
	options Options

	disks   []*disk.Disk
	current *disk.Disk

	diskTable   table.Model
	layoutTable table.Model
	wizard      WizardModel

	confirmFocused int // 0 = back, 1 = write
	loadErr        error
	status         string
	statusErr      bool
	written        string

	width  int
	height int
}

// Messages exchanged with background commands.
type (
	disksLoadedMsg struct {
		disks []*disk.Disk
		err   error
	}
	devicesChangedMsg struct{}
	planWrittenMsg    struct {
		path string
		err  error
	}
)

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	dt := table.New(
		table.WithColumns(diskColumns()),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	dt.SetStyles(tableStyles())

	lt := table.New(
		table.WithColumns(layoutColumns()),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	lt.SetStyles(tableStyles())

	return Model{
		state:       StateDisks,
		options:     opts,
		diskTable:   dt,
		layoutTable: lt,
		width:       80,
		height:      24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadDisks(), m.listenDevices())
}

// loadDisks re-runs block device enumeration.
func (m Model) loadDisks() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		disks, err := lsblk.Disks(ctx)
		return disksLoadedMsg{disks: disks, err: err}
	}
}

// listenDevices waits for the next hotplug notification.
func (m Model) listenDevices() tea.Cmd {
	w := m.options.Watcher
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-w.Changes(); !ok {
			return nil
		}
		return devicesChangedMsg{}
	}
}

// writePlan exports the plan document.
func (m Model) writePlan() tea.Cmd {
	p := m.options.Plan
	path := m.options.Output
	return func() tea.Msg {
		return planWrittenMsg{path: path, err: p.Export(path)}
	}
}

// Run starts the TUI application and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case disksLoadedMsg:
		m.loadErr = msg.err
		if msg.err == nil {
			m.disks = msg.disks
			m.diskTable.SetRows(diskRows(m.disks))
		}
		return m, nil

	case devicesChangedMsg:
		// Re-enumerate, then resume listening.
		return m, tea.Batch(m.loadDisks(), m.listenDevices())

	case planWrittenMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			m.statusErr = true
			return m, nil
		}
		m.written = msg.path
		m.state = StateDone
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case StateDisks:
		return m.handleDisksKey(msg)
	case StateLayout:
		return m.handleLayoutKey(msg)
	case StateWizard:
		return m.handleWizardKey(msg)
	case StateConfirm:
		return m.handleConfirmKey(key)
	case StateDone:
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current page.
func (m Model) View() string {
	switch m.state {
	case StateDisks:
		return m.viewDisks()
	case StateLayout:
		return m.viewLayout()
	case StateWizard:
		return m.viewWizard()
	case StateConfirm:
		return m.viewConfirm()
	case StateDone:
		return successTextStyle.Render(fmt.Sprintf("Plan written to %s\n", m.written))
	}
	return ""
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(primaryColor)
	s.Selected = s.Selected.Foreground(accentColor).Bold(true)
	return s
}

func diskColumns() []table.Column {
	return []table.Column{
		{Title: "Device", Width: 12},
		{Title: "Size", Width: 12},
		{Title: "Sectors", Width: 16},
		{Title: "Partitions", Width: 10},
	}
}

func diskRows(disks []*disk.Disk) []table.Row {
	rows := make([]table.Row, 0, len(disks))
	for _, d := range disks {
		rows = append(rows, table.Row{
			d.Name(),
			disk.FormatSize(d.SizeBytes()),
			humanize.Comma(int64(d.Size())),
			fmt.Sprintf("%d", len(d.Partitions())),
		})
	}
	return rows
}

func layoutColumns() []table.Column {
	headers := disk.PartitionTableColumns()
	widths := []int{9, 11, 11, 12, 12, 11, 8, 12, 16}
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: widths[i]}
	}
	return cols
}

func layoutRows(d *disk.Disk) []table.Row {
	rows := make([]table.Row, 0, len(d.Layout()))
	for _, it := range d.Layout() {
		rows = append(rows, table.Row(it.Row(d.SectorSize())))
	}
	return rows
}
