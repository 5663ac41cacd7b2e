package disk

import (
	"errors"
	"fmt"
	"sort"
)

// Layout mutation errors.
var (
	// ErrOverlap indicates a candidate partition intersects an active
	// partition's sector range. The layout is left unchanged.
	ErrOverlap = errors.New("partition overlaps an existing partition")

	// ErrNotFound indicates no layout entry carries the requested id.
	ErrNotFound = errors.New("no layout entry with id")

	// ErrNotPartition indicates the entry at the requested id is a
	// free-space region, not a partition.
	ErrNotPartition = errors.New("layout entry is not a partition")
)

// Disk is the aggregate root of the layout engine: a device's sector
// geometry plus the ordered list of partitions and free-space regions on
// it. Every mutating method re-derives free space before returning, so
// the layout invariants hold whenever control is outside this package:
// active partitions never overlap, gaps of at least 5 MiB are represented
// by exactly one free-space entry, partitions marked for deletion sit at
// the front of the layout, and everything else is ordered by start sector.
type Disk struct {
	name       string
	size       uint64 // sectors
	sectorSize uint64

	// layout is the current, mutable view. initialLayout is the snapshot
	// taken at construction; ResetLayout restores it verbatim.
	layout        []Item
	initialLayout []Item

	// totalUsedSectors accumulates across a DiskoConfig export pass and
	// is zeroed when the pass completes.
	totalUsedSectors uint64
}

// New builds a Disk from a device name, its total size in sectors, its
// sector size in bytes, and the discovered layout. The layout is
// snapshotted for ResetLayout and free space is derived immediately.
func New(name string, size, sectorSize uint64, layout []Item) *Disk {
	d := &Disk{
		name:          name,
		size:          size,
		sectorSize:    sectorSize,
		initialLayout: cloneItems(layout),
		layout:        layout,
	}
	d.CalculateFreeSpace()
	return d
}

// Name returns the device name, e.g. "sda".
func (d *Disk) Name() string { return d.name }

// Size returns the disk size in sectors.
func (d *Disk) Size() uint64 { return d.size }

// SectorSize returns the bytes per sector.
func (d *Disk) SectorSize() uint64 { return d.sectorSize }

// SizeBytes returns the disk size in bytes.
func (d *Disk) SizeBytes() uint64 { return d.size * d.sectorSize }

// Layout returns the current layout. Callers must not mutate the slice.
func (d *Disk) Layout() []Item { return d.layout }

// Partitions returns the partitions in layout order.
func (d *Disk) Partitions() []*Partition {
	var parts []*Partition
	for _, it := range d.layout {
		if p, ok := it.(*Partition); ok {
			parts = append(parts, p)
		}
	}
	return parts
}

// FreeSpaces returns the free-space regions in layout order.
func (d *Disk) FreeSpaces() []*FreeSpace {
	var free []*FreeSpace
	for _, it := range d.layout {
		if f, ok := it.(*FreeSpace); ok {
			free = append(free, f)
		}
	}
	return free
}

// PartitionByID returns the partition with the given id, or nil.
func (d *Disk) PartitionByID(id uint64) *Partition {
	for _, p := range d.Partitions() {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// ResetLayout discards every change made this session and restores the
// layout discovered at construction time.
func (d *Disk) ResetLayout() {
	d.layout = cloneItems(d.initialLayout)
	d.CalculateFreeSpace()
}

// RemovePartition structurally removes the partition with the given id.
// This is for partitions that only exist in the plan; partitions present
// on the real disk are soft-deleted by setting StatusDelete instead.
func (d *Disk) RemovePartition(id uint64) error {
	idx := -1
	for i, it := range d.layout {
		if it.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w %d", ErrNotFound, id)
	}
	if _, ok := d.layout[idx].(*Partition); !ok {
		return fmt.Errorf("%w: id %d", ErrNotPartition, id)
	}

	d.layout = append(d.layout[:idx], d.layout[idx+1:]...)
	d.CalculateFreeSpace()
	return nil
}

// NewPartition inserts a planned partition after checking its half-open
// sector range [start, end) against every active partition. Partitions
// marked for deletion are ignored; two partitions that merely touch
// (A.end == B.start) are legal. On overlap the layout is re-derived and
// left semantically unchanged.
func (d *Disk) NewPartition(part *Partition) error {
	d.ClearFreeSpace()

	newStart := part.Start
	newEnd := part.End()
	for _, it := range d.layout {
		p, ok := it.(*Partition)
		if !ok || p.Status == StatusDelete {
			continue
		}
		if newStart < p.End() && newEnd > p.Start {
			d.CalculateFreeSpace()
			return fmt.Errorf("%w: [%d, %d) intersects [%d, %d)",
				ErrOverlap, newStart, newEnd, p.Start, p.End())
		}
	}

	d.layout = append(d.layout, part)
	d.CalculateFreeSpace()
	return nil
}

// ClearFreeSpace drops every free-space entry from the layout.
func (d *Disk) ClearFreeSpace() {
	kept := d.layout[:0]
	for _, it := range d.layout {
		if _, ok := it.(*FreeSpace); !ok {
			kept = append(kept, it)
		}
	}
	d.layout = kept
	d.NormalizeLayout()
}

// CalculateFreeSpace re-derives every free-space region from the current
// partition set. Partitions marked for deletion are excluded from the
// derivation but retained at the front of the layout for display. Gaps
// are measured from the 2048-sector alignment offset, between partitions,
// and to the end of the disk; only gaps larger than 5 MiB are kept.
func (d *Disk) CalculateFreeSpace() {
	var deleted, parts []Item
	for _, it := range d.layout {
		p, ok := it.(*Partition)
		switch {
		case ok && p.Status == StatusDelete:
			deleted = append(deleted, it)
		case ok:
			parts = append(parts, it)
		}
		// Stale free-space entries are discarded and re-derived below.
	}

	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].StartSector() < parts[j].StartSector()
	})

	threshold := MiBToSectors(minFreeSpaceMiB, d.sectorSize)
	cursor := AlignmentSectors
	var gaps []Item

	for _, it := range parts {
		p := it.(*Partition)
		if p.Start > cursor {
			gap := p.Start - cursor
			if gap > threshold {
				gaps = append(gaps, NewFreeSpace(cursor, gap))
			}
		}
		cursor = p.End()
	}
	if cursor < d.size {
		if gap := d.size - cursor; gap > threshold {
			gaps = append(gaps, NewFreeSpace(cursor, gap))
		}
	}

	merged := append(parts, gaps...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartSector() < merged[j].StartSector()
	})

	d.layout = append(deleted, merged...)
	d.NormalizeLayout()
}

// NormalizeLayout moves deleted partitions to the front of the layout and
// merges runs of adjacent free-space entries into single regions, keeping
// the first region's start and id. It is idempotent.
func (d *Disk) NormalizeLayout() {
	var deleted, others []Item
	for _, it := range d.layout {
		if p, ok := it.(*Partition); ok && p.Status == StatusDelete {
			deleted = append(deleted, it)
		} else {
			others = append(others, it)
		}
	}

	out := make([]Item, 0, len(d.layout))
	out = append(out, deleted...)

	var pending *FreeSpace
	for _, it := range others {
		switch v := it.(type) {
		case *FreeSpace:
			if pending != nil {
				pending.Size += v.Size
			} else {
				cp := *v
				pending = &cp
			}
		case *Partition:
			if pending != nil {
				out = append(out, pending)
				pending = nil
			}
			out = append(out, v)
		}
	}
	if pending != nil {
		out = append(out, pending)
	}

	d.layout = out
}

// UseDefaultLayout replaces the plan with the stock two-partition scheme:
// a 500 MiB FAT32 EFI system partition at sector 2048 mounted at /boot,
// followed immediately by a root partition spanning the rest of the disk,
// formatted with fsType (ext4 when empty). Existing partitions are marked
// for deletion; partitions created earlier this session are dropped.
func (d *Disk) UseDefaultLayout(fsType string) {
	if fsType == "" {
		fsType = "ext4"
	}

	kept := d.layout[:0]
	for _, it := range d.layout {
		if p, ok := it.(*Partition); ok && p.Status != StatusCreate {
			p.Status = StatusDelete
			kept = append(kept, p)
		}
	}
	d.layout = kept

	boot := &Partition{
		id:         NewEntryID(),
		Start:      AlignmentSectors,
		Size:       MiBToSectors(500, d.sectorSize),
		SectorSize: d.sectorSize,
		Status:     StatusCreate,
		FSType:     "fat32",
		MountPoint: "/boot",
		Label:      "BOOT",
		Flags:      []string{"boot", "esp"},
	}
	root := &Partition{
		id:         NewEntryID(),
		Start:      boot.End(),
		Size:       d.size - boot.End(),
		SectorSize: d.sectorSize,
		Status:     StatusCreate,
		FSType:     fsType,
		MountPoint: "/",
		Label:      "ROOT",
	}

	d.layout = append(d.layout, boot, root)
	d.CalculateFreeSpace()
}
