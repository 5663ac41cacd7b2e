package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		wantErr string
	}{
		{
			name:    "missing start",
			builder: NewBuilder().Size(100).MountPoint("/data"),
			wantErr: "start is required",
		},
		{
			name:    "missing size",
			builder: NewBuilder().Start(2048).MountPoint("/data"),
			wantErr: "size is required",
		},
		{
			name:    "zero size",
			builder: NewBuilder().Start(2048).Size(0).MountPoint("/data"),
			wantErr: "size must be greater than zero",
		},
		{
			name:    "missing mount point",
			builder: NewBuilder().Start(2048).Size(100),
			wantErr: "mount point is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.builder.Build()
			require.ErrorIs(t, err, ErrInvalidPartition)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Nil(t, p)
		})
	}
}

func TestBuilderDefaults(t *testing.T) {
	p, err := NewBuilder().Start(2048).Size(100).MountPoint("/data").Build()
	require.NoError(t, err)

	assert.Equal(t, uint64(512), p.SectorSize, "sector size defaults to 512")
	assert.Equal(t, StatusUnknown, p.Status, "status defaults to unknown")
	assert.NotZero(t, p.ID())
	assert.Equal(t, uint64(2148), p.End())
}

func TestBuilderFields(t *testing.T) {
	p, err := NewBuilder().
		Start(4096).
		Size(1024000).
		SectorSize(4096).
		Status(StatusCreate).
		Name("nvme0n1p2").
		FSType("btrfs").
		MountPoint("/home").
		Label("HOME").
		ReadOnly(true).
		AddFlag("boot").
		AddFlag("boot"). // duplicate, ignored
		Build()
	require.NoError(t, err)

	assert.Equal(t, uint64(4096), p.Start)
	assert.Equal(t, uint64(1024000), p.Size)
	assert.Equal(t, uint64(4096), p.SectorSize)
	assert.Equal(t, StatusCreate, p.Status)
	assert.Equal(t, "nvme0n1p2", p.Name)
	assert.Equal(t, "btrfs", p.FSType)
	assert.Equal(t, "/home", p.MountPoint)
	assert.Equal(t, "HOME", p.Label)
	assert.True(t, p.ReadOnly)
	assert.Equal(t, []string{"boot"}, p.Flags)
}

func TestFlagSetSemantics(t *testing.T) {
	p := Discovered(2048, 100, 512, "sda1", "ext4", "/", "")

	p.AddFlag("boot")
	p.AddFlag("boot")
	p.AddFlags("esp", "boot", "bls_boot")
	assert.Equal(t, []string{"boot", "esp", "bls_boot"}, p.Flags)

	p.RemoveFlag("esp")
	assert.Equal(t, []string{"boot", "bls_boot"}, p.Flags)
	assert.True(t, p.HasFlag("boot"))
	assert.False(t, p.HasFlag("esp"))

	p.RemoveFlags("boot", "bls_boot", "missing")
	assert.Empty(t, p.Flags)
}

func TestDiskoFSType(t *testing.T) {
	tests := []struct {
		fsType string
		want   string
		ok     bool
	}{
		{"ext4", "ext4", true},
		{"ext3", "ext3", true},
		{"ext2", "ext2", true},
		{"btrfs", "btrfs", true},
		{"xfs", "xfs", true},
		{"fat12", "vfat", true},
		{"fat16", "vfat", true},
		{"fat32", "vfat", true},
		{"ntfs", "ntfs", true},
		{"swap", "swap", true},
		{"zfs", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		p := &Partition{FSType: tt.fsType}
		got, ok := p.DiskoFSType()
		assert.Equal(t, tt.ok, ok, "fs %q", tt.fsType)
		assert.Equal(t, tt.want, got, "fs %q", tt.fsType)
	}
}

func TestGPTCode(t *testing.T) {
	tests := []struct {
		fsType string
		esp    bool
		want   string
		ok     bool
	}{
		{"ext4", false, "8300", true},
		{"btrfs", false, "8300", true},
		{"xfs", false, "8300", true},
		{"fat32", false, "0700", true},
		{"fat32", true, "EF00", true},
		{"fat16", true, "EF00", true},
		{"ntfs", false, "0700", true},
		{"ntfs", true, "0700", true},
		{"swap", false, "8200", true},
		{"exotic", false, "", false},
	}

	for _, tt := range tests {
		p := &Partition{FSType: tt.fsType}
		got, ok := p.GPTCode(tt.esp)
		assert.Equal(t, tt.ok, ok, "fs %q esp %v", tt.fsType, tt.esp)
		assert.Equal(t, tt.want, got, "fs %q esp %v", tt.fsType, tt.esp)
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "existing", StatusExists.String())
	assert.Equal(t, "modify", StatusModify.String())
	assert.Equal(t, "create", StatusCreate.String())
	assert.Equal(t, "delete", StatusDelete.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestRowProjection(t *testing.T) {
	p := Discovered(2048, 2048, 512, "sda1", "ext4", "/", "ROOT")
	p.AddFlags("boot", "esp")

	row := p.Row(512)
	require.Len(t, row, len(PartitionTableColumns()))
	assert.Equal(t, "existing", row[0])
	assert.Equal(t, "sda1", row[1])
	assert.Equal(t, "ROOT", row[2])
	assert.Equal(t, "2048", row[3])
	assert.Equal(t, "4095", row[4], "end column is the last sector, inclusive")
	assert.Equal(t, "1.00 MiB", row[5])
	assert.Equal(t, "boot,esp", row[8])

	free := NewFreeSpace(4096, 4096)
	row = free.Row(512)
	require.Len(t, row, len(PartitionTableColumns()))
	assert.Equal(t, "free", row[0])
	assert.Equal(t, "4096", row[3])
	assert.Equal(t, "8191", row[4])
	assert.Equal(t, "2.00 MiB", row[5])
}
