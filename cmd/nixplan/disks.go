package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nixplan/nixplan/pkg/nixplan/disk"
	"github.com/nixplan/nixplan/pkg/nixplan/lsblk"
)

var (
	disksJSON bool

	disksCmd = &cobra.Command{
		Use:   "disks",
		Short: "List candidate target disks",
		Long: `Enumerate block devices eligible as installation targets.

Disks hosting the running system (or the installer ISO) are excluded.`,
		Args: cobra.NoArgs,
		RunE: runDisks,
	}
)

func init() {
	disksCmd.Flags().BoolVarP(&disksJSON, "json", "j", false, "output JSON format")
	rootCmd.AddCommand(disksCmd)
}

var (
	diskHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	diskNameStyle   = lipgloss.NewStyle().Bold(true)
	diskMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// diskReport is the JSON shape of one enumerated disk.
type diskReport struct {
	Name       string          `json:"name"`
	Sectors    uint64          `json:"sectors"`
	SectorSize uint64          `json:"sector_size"`
	Size       string          `json:"size"`
	Partitions []diskPartition `json:"partitions"`
}

type diskPartition struct {
	Name       string `json:"name"`
	Start      uint64 `json:"start"`
	Sectors    uint64 `json:"sectors"`
	Size       string `json:"size"`
	FSType     string `json:"fstype,omitempty"`
	MountPoint string `json:"mountpoint,omitempty"`
	Label      string `json:"label,omitempty"`
}

func runDisks(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	disks, err := lsblk.Disks(ctx)
	if err != nil {
		printError("%v", err)
		return err
	}

	if disksJSON {
		return printDisksJSON(disks)
	}
	printDisksPretty(disks)
	return nil
}

func printDisksJSON(disks []*disk.Disk) error {
	reports := make([]diskReport, 0, len(disks))
	for _, d := range disks {
		r := diskReport{
			Name:       d.Name(),
			Sectors:    d.Size(),
			SectorSize: d.SectorSize(),
			Size:       disk.FormatSize(d.SizeBytes()),
		}
		for _, p := range d.Partitions() {
			r.Partitions = append(r.Partitions, diskPartition{
				Name:       p.Name,
				Start:      p.Start,
				Sectors:    p.Size,
				Size:       disk.FormatSize(p.SizeBytes()),
				FSType:     p.FSType,
				MountPoint: p.MountPoint,
				Label:      p.Label,
			})
		}
		reports = append(reports, r)
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printDisksPretty(disks []*disk.Disk) {
	if len(disks) == 0 {
		fmt.Println(diskMutedStyle.Render("No candidate disks found."))
		return
	}

	fmt.Println(diskHeaderStyle.Render("Candidate disks"))
	for _, d := range disks {
		fmt.Printf("%s  %s  %s sectors of %d bytes\n",
			diskNameStyle.Render("/dev/"+d.Name()),
			disk.FormatSize(d.SizeBytes()),
			humanize.Comma(int64(d.Size())),
			d.SectorSize())

		for _, p := range d.Partitions() {
			details := make([]string, 0, 3)
			if p.FSType != "" {
				details = append(details, p.FSType)
			}
			if p.Label != "" {
				details = append(details, p.Label)
			}
			if p.MountPoint != "" {
				details = append(details, "mounted on "+p.MountPoint)
			}
			line := fmt.Sprintf("  %-10s %10s", p.Name, disk.FormatSize(p.SizeBytes()))
			if len(details) > 0 {
				line += "  " + diskMutedStyle.Render(strings.Join(details, ", "))
			}
			fmt.Println(line)
		}
	}
}
