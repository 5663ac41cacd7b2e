package disk

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Status is a partition's lifecycle tag within the planning session.
type Status int

// Partition lifecycle states. A partition discovered on disk is Exists;
// marking it for reformat moves it to Modify (reversible); a soft delete
// moves it to Delete, which nothing but a full layout reset leaves. New
// partitions planned in this session are Create.
const (
	StatusUnknown Status = iota
	StatusExists
	StatusModify
	StatusCreate
	StatusDelete
)

// String returns the display form used in partition tables.
func (s Status) String() string {
	switch s {
	case StatusExists:
		return "existing"
	case StatusModify:
		return "modify"
	case StatusCreate:
		return "create"
	case StatusDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ErrInvalidPartition indicates that a partition failed builder validation.
var ErrInvalidPartition = errors.New("invalid partition")

// Partition is a single partition, existing on disk or planned.
//
// Start and Size are sector counts; the extent is the half-open range
// [Start, Start+Size). SectorSize is informational here; geometry decisions
// belong to the owning Disk.
type Partition struct {
	id         uint64
	Start      uint64
	Size       uint64
	SectorSize uint64
	Status     Status
	Name       string
	FSType     string
	MountPoint string
	Label      string
	ReadOnly   bool
	Flags      []string
}

// Discovered builds a partition for a device found by the block-device
// enumerator. Unlike the builder it does not validate; discovered data is
// recorded as-is with status Exists.
func Discovered(start, size, sectorSize uint64, name, fsType, mountPoint, label string) *Partition {
	return &Partition{
		id:         NewEntryID(),
		Start:      start,
		Size:       size,
		SectorSize: sectorSize,
		Status:     StatusExists,
		Name:       name,
		FSType:     fsType,
		MountPoint: mountPoint,
		Label:      label,
	}
}

// ID returns the partition's unique layout entry id.
func (p *Partition) ID() uint64 { return p.id }

// StartSector returns the first sector of the partition.
func (p *Partition) StartSector() uint64 { return p.Start }

// End returns the first sector past the partition (exclusive).
func (p *Partition) End() uint64 { return p.Start + p.Size }

// SizeBytes returns the partition size in bytes.
func (p *Partition) SizeBytes() uint64 { return p.Size * p.SectorSize }

func (p *Partition) isItem() {}

// HasFlag reports whether the partition carries the given flag.
func (p *Partition) HasFlag(flag string) bool {
	return slices.Contains(p.Flags, flag)
}

// AddFlag adds a flag unless it is already present.
func (p *Partition) AddFlag(flag string) {
	if !slices.Contains(p.Flags, flag) {
		p.Flags = append(p.Flags, flag)
	}
}

// AddFlags adds each flag, skipping duplicates.
func (p *Partition) AddFlags(flags ...string) {
	for _, f := range flags {
		p.AddFlag(f)
	}
}

// RemoveFlag removes a flag by exact match.
func (p *Partition) RemoveFlag(flag string) {
	p.Flags = slices.DeleteFunc(p.Flags, func(f string) bool { return f == flag })
}

// RemoveFlags removes each of the given flags.
func (p *Partition) RemoveFlags(flags ...string) {
	p.Flags = slices.DeleteFunc(p.Flags, func(f string) bool {
		return slices.Contains(flags, f)
	})
}

// DiskoFSType translates the partition's filesystem to the format string
// disko expects. The second return is false for filesystems disko cannot
// format.
func (p *Partition) DiskoFSType() (string, bool) {
	switch p.FSType {
	case "ext4", "ext3", "ext2", "btrfs", "xfs":
		return p.FSType, true
	case "fat12", "fat16", "fat32":
		return "vfat", true
	case "ntfs":
		return "ntfs", true
	case "swap":
		return "swap", true
	default:
		return "", false
	}
}

// GPTCode translates the partition's filesystem to a GPT partition type
// code. FAT partitions are EF00 when the partition is an EFI system
// partition and 0700 otherwise.
func (p *Partition) GPTCode(esp bool) (string, bool) {
	switch p.FSType {
	case "ext4", "ext3", "ext2", "btrfs", "xfs":
		return "8300", true
	case "fat12", "fat16", "fat32":
		if esp {
			return "EF00", true
		}
		return "0700", true
	case "ntfs":
		return "0700", true
	case "swap":
		return "8200", true
	default:
		return "", false
	}
}

// Row projects the partition into display columns matching
// PartitionTableColumns.
func (p *Partition) Row(sectorSize uint64) []string {
	return []string{
		p.Status.String(),
		p.Name,
		p.Label,
		strconv.FormatUint(p.Start, 10),
		strconv.FormatUint(p.End()-1, 10),
		FormatSize(p.Size * sectorSize),
		p.FSType,
		p.MountPoint,
		joinFlags(p.Flags),
	}
}

// Builder accumulates partition fields and validates them in one Build
// call, so a partially-specified partition can never enter a layout.
type Builder struct {
	start      uint64
	size       uint64
	sectorSize uint64
	hasStart   bool
	hasSize    bool
	status     Status
	name       string
	fsType     string
	mountPoint string
	label      string
	readOnly   bool
	flags      []string
}

// NewBuilder returns an empty partition builder. Status defaults to
// Unknown and the sector size to 512 unless set.
func NewBuilder() *Builder {
	return &Builder{status: StatusUnknown}
}

// Start sets the first sector.
func (b *Builder) Start(start uint64) *Builder {
	b.start = start
	b.hasStart = true
	return b
}

// Size sets the size in sectors.
func (b *Builder) Size(size uint64) *Builder {
	b.size = size
	b.hasSize = true
	return b
}

// SectorSize sets the bytes-per-sector used for byte conversions.
func (b *Builder) SectorSize(sectorSize uint64) *Builder {
	b.sectorSize = sectorSize
	return b
}

// Status sets the lifecycle status.
func (b *Builder) Status(status Status) *Builder {
	b.status = status
	return b
}

// Name sets the device name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// FSType sets the filesystem type.
func (b *Builder) FSType(fsType string) *Builder {
	b.fsType = fsType
	return b
}

// MountPoint sets the mount point. Build rejects partitions without one.
func (b *Builder) MountPoint(mountPoint string) *Builder {
	b.mountPoint = mountPoint
	return b
}

// Label sets the partition label.
func (b *Builder) Label(label string) *Builder {
	b.label = label
	return b
}

// ReadOnly marks the partition read-only.
func (b *Builder) ReadOnly(ro bool) *Builder {
	b.readOnly = ro
	return b
}

// AddFlag adds a flag, skipping duplicates.
func (b *Builder) AddFlag(flag string) *Builder {
	if !slices.Contains(b.flags, flag) {
		b.flags = append(b.flags, flag)
	}
	return b
}

// Build validates the accumulated fields and returns the partition.
// Start, a non-zero size and a mount point are required.
func (b *Builder) Build() (*Partition, error) {
	if !b.hasStart {
		return nil, fmt.Errorf("%w: start is required", ErrInvalidPartition)
	}
	if !b.hasSize {
		return nil, fmt.Errorf("%w: size is required", ErrInvalidPartition)
	}
	if b.size == 0 {
		return nil, fmt.Errorf("%w: size must be greater than zero", ErrInvalidPartition)
	}
	if b.mountPoint == "" {
		return nil, fmt.Errorf("%w: mount point is required", ErrInvalidPartition)
	}
	sectorSize := b.sectorSize
	if sectorSize == 0 {
		sectorSize = 512
	}

	return &Partition{
		id:         NewEntryID(),
		Start:      b.start,
		Size:       b.size,
		SectorSize: sectorSize,
		Status:     b.status,
		Name:       b.name,
		FSType:     b.fsType,
		MountPoint: b.mountPoint,
		Label:      b.label,
		ReadOnly:   b.readOnly,
		Flags:      b.flags,
	}, nil
}
