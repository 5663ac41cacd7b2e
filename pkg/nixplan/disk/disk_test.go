package disk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 100 GiB of 512-byte sectors.
const testDiskSectors = (100 << 30) / 512

func testDisk(t *testing.T, layout ...Item) *Disk {
	t.Helper()
	resetEntryIDs()
	return New("sda", testDiskSectors, 512, layout)
}

func mustBuild(t *testing.T, b *Builder) *Partition {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

// layoutShape flattens a layout into comparable (kind, start, size)
// triples, ignoring entry ids.
func layoutShape(items []Item) [][3]uint64 {
	var shape [][3]uint64
	for _, it := range items {
		switch v := it.(type) {
		case *Partition:
			shape = append(shape, [3]uint64{0, v.Start, v.Size})
		case *FreeSpace:
			shape = append(shape, [3]uint64{1, v.Start, v.Size})
		}
	}
	return shape
}

func TestEmptyDiskIsOneFreeRegion(t *testing.T) {
	d := testDisk(t)

	require.Len(t, d.Layout(), 1)
	free := d.FreeSpaces()
	require.Len(t, free, 1)
	assert.Equal(t, AlignmentSectors, free[0].Start)
	assert.Equal(t, uint64(testDiskSectors)-AlignmentSectors, free[0].Size)
}

func TestCalculateFreeSpaceGaps(t *testing.T) {
	// Two partitions with a gap between them and space at the end.
	a := Discovered(2048, 1024000, 512, "sda1", "fat32", "/boot", "")
	b := Discovered(4096000, 1024000, 512, "sda2", "ext4", "/", "")
	d := testDisk(t, a, b)

	free := d.FreeSpaces()
	require.Len(t, free, 2)

	assert.Equal(t, uint64(1026048), free[0].Start, "gap starts where sda1 ends")
	assert.Equal(t, uint64(4096000-1026048), free[0].Size)
	assert.Equal(t, uint64(5120000), free[1].Start, "tail gap starts where sda2 ends")
	assert.Equal(t, uint64(testDiskSectors-5120000), free[1].Size)
}

func TestSubThresholdGapsAreNotRepresented(t *testing.T) {
	// 1 MiB gap between the partitions: below the 5 MiB threshold.
	a := Discovered(2048, 1024000, 512, "sda1", "ext4", "/", "")
	b := Discovered(1026048+2048, testDiskSectors-1026048-2048, 512, "sda2", "ext4", "/home", "")
	d := testDisk(t, a, b)

	assert.Empty(t, d.FreeSpaces())
}

func TestTilingCompleteness(t *testing.T) {
	a := Discovered(4096, 204800, 512, "sda1", "ext4", "/", "")
	b := Discovered(1024000, 204800, 512, "sda2", "ext4", "/home", "")
	c := Discovered(50000000, 204800, 512, "sda3", "swap", "", "")
	d := testDisk(t, a, b, c)

	// Walking the layout in order, every hole between covered intervals
	// must be below the representation threshold.
	threshold := MiBToSectors(5, 512)
	cursor := AlignmentSectors
	for _, it := range d.Layout() {
		var start, size uint64
		switch v := it.(type) {
		case *Partition:
			start, size = v.Start, v.Size
		case *FreeSpace:
			start, size = v.Start, v.Size
		}
		require.GreaterOrEqual(t, start, cursor, "layout must be ordered")
		assert.LessOrEqual(t, start-cursor, threshold, "unrepresented gap too large")
		cursor = start + size
	}
	assert.LessOrEqual(t, uint64(testDiskSectors)-cursor, threshold, "trailing gap too large")
}

func TestNormalizeLayoutIdempotent(t *testing.T) {
	a := Discovered(2048, 1024000, 512, "sda1", "fat32", "/boot", "")
	b := Discovered(4096000, 1024000, 512, "sda2", "ext4", "/", "")
	del := Discovered(8192000, 1024000, 512, "sda3", "ext4", "", "")
	del.Status = StatusDelete
	d := testDisk(t, a, b, del)

	once := layoutShape(d.Layout())
	d.NormalizeLayout()
	assert.Equal(t, once, layoutShape(d.Layout()))
	d.NormalizeLayout()
	d.NormalizeLayout()
	assert.Equal(t, once, layoutShape(d.Layout()))
}

func TestNormalizeMergesAdjacentFreeSpace(t *testing.T) {
	d := testDisk(t)
	// Splice two touching free-space entries in by hand.
	d.layout = []Item{
		NewFreeSpace(2048, 1000),
		NewFreeSpace(3048, 2000),
		Discovered(5048, 100, 512, "sda1", "ext4", "/", ""),
		NewFreeSpace(5148, 500),
		NewFreeSpace(5648, 500),
	}
	d.NormalizeLayout()

	require.Equal(t, [][3]uint64{
		{1, 2048, 3000},
		{0, 5048, 100},
		{1, 5148, 1000},
	}, layoutShape(d.Layout()))
}

func TestDeletedPartitionsSortToFront(t *testing.T) {
	a := Discovered(2048, 1024000, 512, "sda1", "fat32", "/boot", "")
	b := Discovered(4096000, 1024000, 512, "sda2", "ext4", "/", "")
	d := testDisk(t, a, b)

	b.Status = StatusDelete
	d.CalculateFreeSpace()

	first, ok := d.Layout()[0].(*Partition)
	require.True(t, ok)
	assert.Equal(t, StatusDelete, first.Status)

	// The deleted partition no longer blocks free-space derivation: the
	// region it occupied is free again.
	free := d.FreeSpaces()
	require.Len(t, free, 1)
	assert.Equal(t, uint64(1026048), free[0].Start)
	assert.Equal(t, uint64(testDiskSectors-1026048), free[0].Size)
}

func TestNewPartitionRejectsOverlap(t *testing.T) {
	existing := Discovered(2048, 1024000, 512, "sda1", "ext4", "/", "")
	d := testDisk(t, existing)
	before := layoutShape(d.Layout())

	overlapping := mustBuild(t, NewBuilder().
		Start(1024000).Size(4096).Status(StatusCreate).FSType("ext4").MountPoint("/home"))

	err := d.NewPartition(overlapping)
	require.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, before, layoutShape(d.Layout()), "failed insert must not change the layout")
}

func TestNewPartitionIgnoresDeleted(t *testing.T) {
	existing := Discovered(2048, 1024000, 512, "sda1", "ext4", "/", "")
	d := testDisk(t, existing)
	existing.Status = StatusDelete
	d.CalculateFreeSpace()

	// Same range as the deleted partition: legal.
	p := mustBuild(t, NewBuilder().
		Start(2048).Size(1024000).Status(StatusCreate).FSType("ext4").MountPoint("/"))
	require.NoError(t, d.NewPartition(p))
}

func TestAdjacentPartitionsAreLegal(t *testing.T) {
	a := mustBuild(t, NewBuilder().
		Start(2048).Size(1024000).Status(StatusCreate).FSType("fat32").MountPoint("/boot"))
	d := testDisk(t)
	require.NoError(t, d.NewPartition(a))

	// B starts exactly where A ends: touching, not overlapping.
	b := mustBuild(t, NewBuilder().
		Start(a.End()).Size(1024000).Status(StatusCreate).FSType("ext4").MountPoint("/"))
	require.NoError(t, d.NewPartition(b))

	assertNoOverlaps(t, d)
}

func assertNoOverlaps(t *testing.T, d *Disk) {
	t.Helper()
	var active []*Partition
	for _, p := range d.Partitions() {
		if p.Status != StatusDelete {
			active = append(active, p)
		}
	}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			assert.False(t, a.Start < b.End() && b.Start < a.End(),
				"partitions [%d,%d) and [%d,%d) overlap", a.Start, a.End(), b.Start, b.End())
		}
	}
}

func TestNoOverlapInvariantUnderMutation(t *testing.T) {
	d := testDisk(t,
		Discovered(2048, 1024000, 512, "sda1", "fat32", "/boot", ""),
		Discovered(4096000, 2048000, 512, "sda2", "ext4", "/", ""),
	)
	assertNoOverlaps(t, d)

	p := mustBuild(t, NewBuilder().
		Start(1026048).Size(1024000).Status(StatusCreate).FSType("xfs").MountPoint("/var"))
	require.NoError(t, d.NewPartition(p))
	assertNoOverlaps(t, d)

	require.NoError(t, d.RemovePartition(p.ID()))
	assertNoOverlaps(t, d)

	d.UseDefaultLayout("btrfs")
	assertNoOverlaps(t, d)
}

func TestRemovePartitionErrors(t *testing.T) {
	d := testDisk(t, Discovered(2048, 1024000, 512, "sda1", "ext4", "/", ""))

	err := d.RemovePartition(99999)
	require.ErrorIs(t, err, ErrNotFound)

	free := d.FreeSpaces()
	require.NotEmpty(t, free)
	err = d.RemovePartition(free[0].ID())
	require.ErrorIs(t, err, ErrNotPartition)
}

func TestRemovePartition(t *testing.T) {
	a := Discovered(2048, 1024000, 512, "sda1", "ext4", "/", "")
	d := testDisk(t, a)

	require.NoError(t, d.RemovePartition(a.ID()))
	assert.Empty(t, d.Partitions())

	free := d.FreeSpaces()
	require.Len(t, free, 1)
	assert.Equal(t, AlignmentSectors, free[0].Start)
}

func TestResetLayout(t *testing.T) {
	a := Discovered(2048, 1024000, 512, "sda1", "ext4", "/", "")
	d := testDisk(t, a)
	original := layoutShape(d.Layout())

	d.UseDefaultLayout("ext4")
	require.NotEqual(t, original, layoutShape(d.Layout()))

	d.ResetLayout()
	assert.Equal(t, original, layoutShape(d.Layout()))

	restored := d.Partitions()
	require.Len(t, restored, 1)
	assert.Equal(t, a.ID(), restored[0].ID(), "identity survives reset")
	assert.Equal(t, StatusExists, restored[0].Status)
}

func TestUseDefaultLayout(t *testing.T) {
	d := testDisk(t)
	d.UseDefaultLayout("ext4")

	parts := d.Partitions()
	require.Len(t, parts, 2)

	boot, root := parts[0], parts[1]
	assert.Equal(t, AlignmentSectors, boot.Start)
	assert.Equal(t, MiBToSectors(500, 512), boot.Size)
	assert.Equal(t, StatusCreate, boot.Status)
	assert.Equal(t, "fat32", boot.FSType)
	assert.Equal(t, "/boot", boot.MountPoint)
	assert.Equal(t, "BOOT", boot.Label)
	assert.ElementsMatch(t, []string{"boot", "esp"}, boot.Flags)

	assert.Equal(t, boot.End(), root.Start, "root follows boot with no gap")
	assert.Equal(t, uint64(testDiskSectors), root.End(), "root spans to the end of the disk")
	assert.Equal(t, StatusCreate, root.Status)
	assert.Equal(t, "ext4", root.FSType)
	assert.Equal(t, "/", root.MountPoint)
	assert.Equal(t, "ROOT", root.Label)

	assert.Empty(t, d.FreeSpaces(), "default layout leaves no usable gap")
}

func TestUseDefaultLayoutMarksExistingDeleted(t *testing.T) {
	existing := Discovered(2048, 1024000, 512, "sda1", "ntfs", "", "WINDOWS")
	d := testDisk(t, existing)

	created := mustBuild(t, NewBuilder().
		Start(2000000).Size(1024000).Status(StatusCreate).FSType("ext4").MountPoint("/srv"))
	require.NoError(t, d.NewPartition(created))

	d.UseDefaultLayout("xfs")

	assert.Equal(t, StatusDelete, existing.Status, "discovered partitions are soft-deleted")
	assert.Nil(t, d.PartitionByID(created.ID()), "planned partitions are dropped outright")

	var create int
	for _, p := range d.Partitions() {
		if p.Status == StatusCreate {
			create++
		}
	}
	assert.Equal(t, 2, create)
}

func TestDiskoConfig(t *testing.T) {
	d := testDisk(t)
	d.UseDefaultLayout("ext4")

	cfg := d.DiskoConfig()
	assert.Equal(t, "/dev/sda", cfg.Device)
	assert.Equal(t, "disk", cfg.Type)
	assert.Equal(t, "gpt", cfg.Content.Type)

	parts := cfg.Content.Partitions
	require.Equal(t, []string{"BOOT", "ROOT"}, parts.Names(), "output follows layout order")

	boot, ok := parts.Get("BOOT")
	require.True(t, ok)
	assert.Equal(t, "524M", boot.Size)
	assert.Equal(t, "EF00", boot.Type, "esp partitions carry the GPT code")
	assert.Equal(t, "vfat", boot.Format)
	assert.Equal(t, "/boot", boot.MountPoint)

	root, ok := parts.Get("ROOT")
	require.True(t, ok)
	assert.Equal(t, "100%", root.Size, "rest-of-disk partition uses the percent literal")
	assert.Empty(t, root.Type, "non-esp partitions carry no GPT code")
	assert.Equal(t, "ext4", root.Format)
	assert.Equal(t, "/", root.MountPoint)
}

func TestDiskoConfigSkipsDeleted(t *testing.T) {
	doomed := Discovered(2048, 1024000, 512, "sda1", "ntfs", "", "WINDOWS")
	d := testDisk(t, doomed)
	doomed.Status = StatusDelete
	d.CalculateFreeSpace()

	cfg := d.DiskoConfig()
	assert.Zero(t, cfg.Content.Partitions.Len())
}

func TestDiskoConfigUnlabeledName(t *testing.T) {
	d := testDisk(t)
	p := mustBuild(t, NewBuilder().
		Start(2048).Size(1024000).Status(StatusCreate).FSType("ext4").MountPoint("/"))
	require.NoError(t, d.NewPartition(p))

	cfg := d.DiskoConfig()
	names := cfg.Content.Partitions.Names()
	require.Len(t, names, 1)
	assert.Regexp(t, `^part\d+$`, names[0])
}

// The used-sector total is reset to zero when an export pass completes, so
// exporting twice in a row yields the same document instead of the second
// pass seeing the first pass's usage.
func TestDiskoConfigRepeatable(t *testing.T) {
	d := testDisk(t)
	d.UseDefaultLayout("ext4")

	first, err := json.Marshal(d.DiskoConfig())
	require.NoError(t, err)
	second, err := json.Marshal(d.DiskoConfig())
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestDiskoConfigJSONShape(t *testing.T) {
	d := testDisk(t)
	d.UseDefaultLayout("ext4")

	data, err := json.Marshal(d.DiskoConfig())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "/dev/sda", doc["device"])
	assert.Equal(t, "disk", doc["type"])

	content := doc["content"].(map[string]any)
	assert.Equal(t, "gpt", content["type"])
	partitions := content["partitions"].(map[string]any)
	assert.Len(t, partitions, 2)
}
