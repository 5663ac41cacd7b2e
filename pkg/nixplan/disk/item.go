package disk

import (
	"strconv"
	"strings"
)

// Item is one element of a disk layout: a partition or a free-space
// region. The interface is closed; the two implementations are *Partition
// and *FreeSpace, and call sites switch exhaustively over them so that
// free space can never be mistaken for a partition in overlap checks.
type Item interface {
	// ID returns the entry's unique layout id.
	ID() uint64
	// StartSector returns the entry's first sector.
	StartSector() uint64
	// Row projects the entry into display columns.
	Row(sectorSize uint64) []string

	isItem()
}

// FreeSpace is an unallocated gap between partitions. It carries no
// filesystem metadata, only its extent.
type FreeSpace struct {
	id    uint64
	Start uint64
	Size  uint64
}

// NewFreeSpace returns a free-space region with a fresh entry id.
func NewFreeSpace(start, size uint64) *FreeSpace {
	return &FreeSpace{id: NewEntryID(), Start: start, Size: size}
}

// ID returns the region's unique layout entry id.
func (f *FreeSpace) ID() uint64 { return f.id }

// StartSector returns the first sector of the region.
func (f *FreeSpace) StartSector() uint64 { return f.Start }

// End returns the first sector past the region (exclusive).
func (f *FreeSpace) End() uint64 { return f.Start + f.Size }

func (f *FreeSpace) isItem() {}

// Row projects the region into display columns matching
// PartitionTableColumns.
func (f *FreeSpace) Row(sectorSize uint64) []string {
	return []string{
		"free",
		"",
		"",
		strconv.FormatUint(f.Start, 10),
		strconv.FormatUint(f.End()-1, 10),
		FormatSize(f.Size * sectorSize),
		"",
		"",
		"",
	}
}

// PartitionTableColumns returns the column headers matching Item.Row.
func PartitionTableColumns() []string {
	return []string{
		"Status",
		"Device",
		"Label",
		"Start",
		"End",
		"Size",
		"FS Type",
		"Mount Point",
		"Flags",
	}
}

func joinFlags(flags []string) string {
	return strings.Join(flags, ",")
}

// cloneItem deep-copies a layout entry, preserving its id.
func cloneItem(it Item) Item {
	switch v := it.(type) {
	case *Partition:
		cp := *v
		cp.Flags = append([]string(nil), v.Flags...)
		return &cp
	case *FreeSpace:
		cp := *v
		return &cp
	default:
		return it
	}
}

// cloneItems deep-copies a layout.
func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = cloneItem(it)
	}
	return out
}
