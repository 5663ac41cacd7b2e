package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixplan/nixplan/pkg/nixplan/disk"
)

// wizardStep is the stage of the new-partition flow.
type wizardStep int

const (
	stepSize wizardStep = iota
	stepFilesystem
	stepMountPoint
	stepLabel
)

// filesystems offered by the wizard, in display order.
var filesystems = []string{"ext4", "btrfs", "xfs", "fat32", "swap"}

// WizardModel drives the staged new-partition flow: size, filesystem,
// mount point, label. The partition is only built (and validated) at the
// end, so no partial partition ever reaches the layout.
type WizardModel struct {
	target *disk.Disk
	region *disk.FreeSpace

	step     wizardStep
	input    textinput.Model
	fsCursor int

	size       uint64
	fsType     string
	mountPoint string

	err error
}

// newWizard starts the flow for a partition inside the given free region.
func newWizard(target *disk.Disk, region *disk.FreeSpace, defaultFS string) WizardModel {
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("e.g. 20GiB, 50%%, max %s", disk.FormatSize(region.Size*target.SectorSize()))
	ti.Focus()
	ti.CharLimit = 32

	cursor := 0
	for i, fs := range filesystems {
		if fs == defaultFS {
			cursor = i
		}
	}

	return WizardModel{
		target:   target,
		region:   region,
		step:     stepSize,
		input:    ti,
		fsCursor: cursor,
	}
}

func (m Model) handleWizardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w := &m.wizard

	switch msg.String() {
	case "esc":
		m.state = StateLayout
		return m, nil

	case "enter":
		switch w.step {
		case stepSize:
			// The size string is relative to the selected free region.
			sectors, err := disk.ParseSectors(w.input.Value(), m.current.SectorSize(), w.region.Size)
			if err != nil {
				w.err = err
				return m, nil
			}
			if sectors == 0 || sectors > w.region.Size {
				w.err = fmt.Errorf("%w: size must be between 1 and %d sectors", disk.ErrInvalidSize, w.region.Size)
				return m, nil
			}
			w.size = sectors
			w.err = nil
			w.step = stepFilesystem
			return m, nil

		case stepFilesystem:
			w.fsType = filesystems[w.fsCursor]
			w.input.SetValue("")
			w.input.Placeholder = "/mnt/data"
			w.input.Focus()
			w.step = stepMountPoint
			return m, nil

		case stepMountPoint:
			w.mountPoint = w.input.Value()
			w.input.SetValue("")
			w.input.Placeholder = "optional"
			w.step = stepLabel
			return m, nil

		case stepLabel:
			return m.finishWizard()
		}

	case "up", "k":
		if w.step == stepFilesystem && w.fsCursor > 0 {
			w.fsCursor--
			return m, nil
		}

	case "down", "j":
		if w.step == stepFilesystem && w.fsCursor < len(filesystems)-1 {
			w.fsCursor++
			return m, nil
		}
	}

	if w.step != stepFilesystem {
		var cmd tea.Cmd
		w.input, cmd = w.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// finishWizard builds the partition and inserts it into the layout.
func (m Model) finishWizard() (tea.Model, tea.Cmd) {
	w := &m.wizard

	b := disk.NewBuilder().
		Start(w.region.Start).
		Size(w.size).
		SectorSize(m.current.SectorSize()).
		Status(disk.StatusCreate).
		FSType(w.fsType).
		MountPoint(w.mountPoint)
	if label := w.input.Value(); label != "" {
		b = b.Label(label)
	}

	part, err := b.Build()
	if err != nil {
		if errors.Is(err, disk.ErrInvalidPartition) {
			// Missing mount point; send the user back a step.
			w.err = err
			w.step = stepMountPoint
			w.input.SetValue(w.mountPoint)
			w.input.Placeholder = "/mnt/data"
			return m, nil
		}
		w.err = err
		return m, nil
	}

	if err := m.current.NewPartition(part); err != nil {
		w.err = err
		return m, nil
	}

	m.refreshLayout()
	m.state = StateLayout
	return m, nil
}

func (m Model) viewWizard() string {
	w := m.wizard
	title := titleStyle.Render(fmt.Sprintf("New partition in %s of free space",
		disk.FormatSize(w.region.Size*m.current.SectorSize())))

	var body string
	switch w.step {
	case stepSize:
		body = "Partition size:\n\n" + w.input.View()
	case stepFilesystem:
		body = "Filesystem:\n\n"
		for i, fs := range filesystems {
			if i == w.fsCursor {
				body += selectedStyle.Render("> "+fs) + "\n"
			} else {
				body += "  " + fs + "\n"
			}
		}
	case stepMountPoint:
		body = "Mount point:\n\n" + w.input.View()
	case stepLabel:
		body = "Label (optional):\n\n" + w.input.View()
	}

	var errLine string
	if w.err != nil {
		errLine = "\n" + errorTextStyle.Render(w.err.Error())
	}

	help := mutedTextStyle.Render("enter: next • esc: cancel")
	return outerBoxStyle.Render(title + "\n\n" + body + errLine + "\n\n" + help)
}
