// Package lsblk consumes the lsblk block-device enumerator and turns its
// JSON output into disk.Disk models. It is the only place the installer
// learns about real hardware; everything downstream works on the models.
//
// Devices that host the running system (anything mounted at / or /iso,
// directly or through a descendant) are excluded from the candidates, so
// the installer cannot offer to repartition the disk it booted from.
package lsblk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/nixplan/nixplan/pkg/nixplan/disk"
	"github.com/nixplan/nixplan/pkg/nixplan/logging"
)

// outputColumns are the lsblk columns the parser consumes. Sizes are
// requested in bytes (-b); START stays in sectors.
const outputColumns = "NAME,SIZE,TYPE,MOUNTPOINT,FSTYPE,LABEL,START,PHY-SEC"

// ErrEnumerator indicates the lsblk invocation itself failed.
var ErrEnumerator = errors.New("block device enumeration failed")

// ErrBadDevice indicates a device entry was missing a mandatory field.
// Plan construction for that device aborts; this is not user input.
var ErrBadDevice = errors.New("malformed device entry")

// Device mirrors one entry of lsblk's blockdevices array.
type Device struct {
	Name       string   `json:"name"`
	Size       uint64   `json:"size"` // bytes (-b)
	Type       string   `json:"type"`
	MountPoint string   `json:"mountpoint"`
	FSType     string   `json:"fstype"`
	Label      string   `json:"label"`
	Start      uint64   `json:"start"` // sectors
	PhySec     uint64   `json:"phy-sec"`
	Children   []Device `json:"children"`
}

type listing struct {
	BlockDevices []Device `json:"blockdevices"`
}

// Disks invokes lsblk and returns a Disk model per candidate disk.
func Disks(ctx context.Context) ([]*disk.Disk, error) {
	out, err := exec.CommandContext(ctx, "lsblk", "--json", "-o", outputColumns, "-b").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerator, err)
	}
	return Parse(out)
}

// Parse converts raw lsblk JSON into Disk models. Devices hosting the
// running system are skipped; a malformed disk entry aborts the whole
// parse rather than silently producing a partial plan.
func Parse(data []byte) ([]*disk.Disk, error) {
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerator, err)
	}

	log := logging.Get("lsblk")
	var disks []*disk.Disk
	for _, dev := range l.BlockDevices {
		if dev.Type != "disk" {
			continue
		}
		if hostsRunningSystem(dev) {
			log.Debug("skipping system disk", "device", dev.Name)
			continue
		}
		d, err := parseDisk(dev)
		if err != nil {
			return nil, err
		}
		disks = append(disks, d)
	}
	return disks, nil
}

// hostsRunningSystem reports whether the device or any descendant is
// mounted at / or /iso.
func hostsRunningSystem(dev Device) bool {
	if dev.MountPoint == "/" || dev.MountPoint == "/iso" {
		return true
	}
	for _, child := range dev.Children {
		if hostsRunningSystem(child) {
			return true
		}
	}
	return false
}

func parseDisk(dev Device) (*disk.Disk, error) {
	if dev.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrBadDevice)
	}
	if dev.Size == 0 {
		return nil, fmt.Errorf("%w: %s has no size", ErrBadDevice, dev.Name)
	}

	sectorSize := dev.PhySec
	if sectorSize == 0 {
		sectorSize = 512
	}

	var layout []disk.Item
	for _, child := range dev.Children {
		layout = append(layout, disk.Discovered(
			child.Start,
			child.Size/sectorSize,
			sectorSize,
			child.Name,
			child.FSType,
			child.MountPoint,
			child.Label,
		))
	}

	return disk.New(dev.Name, dev.Size/sectorSize, sectorSize, layout), nil
}
