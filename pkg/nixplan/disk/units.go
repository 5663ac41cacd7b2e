// Package disk models a physical disk's partition table for the nixplan
// installer. It tracks partitions and the free-space regions between them
// as half-open sector ranges, derives free space after every mutation, and
// exports a finished layout as a disko partition document.
//
// All offsets and sizes are sector counts unless a name says otherwise.
// The package performs no I/O; device discovery lives in pkg/nixplan/lsblk.
package disk

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Size constants for binary (IEC) units.
const (
	KiB uint64 = 1 << 10
	MiB uint64 = 1 << 20
	GiB uint64 = 1 << 30
	TiB uint64 = 1 << 40
)

// AlignmentSectors is the 1 MiB alignment reserve (in 512-byte sectors) kept
// at the start of the disk and again at the end when sizing partitions for
// disko. The first usable sector of any layout is sector 2048.
const AlignmentSectors uint64 = 2048

// minFreeSpaceMiB is the smallest gap worth representing as a free-space
// region. Gaps below this are alignment slack, not usable space.
const minFreeSpaceMiB uint64 = 5

// ErrInvalidSize indicates that a size string could not be parsed.
// Callers should treat it as user input to re-prompt, not a fault.
var ErrInvalidSize = errors.New("invalid size format")

// FormatSize converts a byte count to a human-readable string using binary
// (IEC) units with two decimal places. Values below 1 KiB are rendered as a
// bare integer with no suffix.
//
//	FormatSize(1023) == "1023"
//	FormatSize(1024) == "1.00 KiB"
func FormatSize(bytes uint64) string {
	switch {
	case bytes >= TiB:
		return fmt.Sprintf("%.2f TiB", float64(bytes)/float64(TiB))
	case bytes >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(bytes)/float64(GiB))
	case bytes >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(bytes)/float64(MiB))
	case bytes >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(bytes)/float64(KiB))
	default:
		return strconv.FormatUint(bytes, 10)
	}
}

// sizeSuffixes maps size suffixes to byte multipliers, most specific first
// so that "b" cannot match inside "kib". Binary units are powers of 1024,
// decimal units powers of 1000. "%" is handled separately.
var sizeSuffixes = []struct {
	suffix     string
	multiplier float64
}{
	{"tib", float64(TiB)},
	{"tb", 1e12},
	{"gib", float64(GiB)},
	{"gb", 1e9},
	{"mib", float64(MiB)},
	{"mb", 1e6},
	{"kib", float64(KiB)},
	{"kb", 1e3},
	{"b", 1},
	{"%", 0},
}

// ParseSectors parses a user-entered size string into a sector count.
// Recognized suffixes are tib, tb, gib, gb, mib, mb, kib, kb, b and %,
// case-insensitive, with surrounding whitespace ignored. A percentage is
// taken of totalSectors; any other suffix converts through bytes and rounds
// to the nearest sector. A bare number is already a sector count.
//
// Returns ErrInvalidSize when the numeric part does not parse.
func ParseSectors(s string, sectorSize, totalSectors uint64) (uint64, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for _, u := range sizeSuffixes {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
		}
		if u.suffix == "%" {
			return uint64(math.Round(v / 100 * float64(totalSectors))), nil
		}
		return uint64(math.Round(v * u.multiplier / float64(sectorSize))), nil
	}

	// No suffix: the number is a raw sector count.
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	return n, nil
}

// MiBToSectors converts a MiB count to sectors, rounding up so the result
// always covers the requested size.
func MiBToSectors(mib, sectorSize uint64) uint64 {
	bytes := mib * 1024 * 1024
	return (bytes + sectorSize - 1) / sectorSize
}

// DiskoSize formats a partition size for a disko config. Sizes are written
// with decimal units (K/M/G/T, zero decimal places) or a bare "<n>B" below
// 1000, because that is the grammar disko's own parser accepts.
//
// When the requested size plus the sectors already consumed by earlier
// partitions reaches the end-of-disk alignment margin (1 MiB), the literal
// "100%" is returned instead so disko fills the remaining space rather than
// tripping over rounding.
func DiskoSize(bytes, usedSectors, sectorSize, totalSectors uint64) string {
	requested := (bytes + sectorSize - 1) / sectorSize
	if requested+usedSectors >= totalSectors-AlignmentSectors {
		return "100%"
	}

	const (
		k = 1e3
		m = 1e6
		g = 1e9
		t = 1e12
	)
	f := float64(bytes)
	switch {
	case f >= t:
		return fmt.Sprintf("%.0fT", f/t)
	case f >= g:
		return fmt.Sprintf("%.0fG", f/g)
	case f >= m:
		return fmt.Sprintf("%.0fM", f/m)
	case f >= k:
		return fmt.Sprintf("%.0fK", f/k)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
