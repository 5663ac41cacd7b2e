package disk

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DiskoPartition is one partition entry in a disko disk document.
type DiskoPartition struct {
	Size       string `json:"size"`
	Type       string `json:"type,omitempty"`
	Format     string `json:"format,omitempty"`
	MountPoint string `json:"mountpoint,omitempty"`
}

// DiskoPartitions is an ordered set of named partition entries. disko
// does not care about order, but emitting partitions in layout order
// keeps the generated document reviewable, so a plain map will not do.
type DiskoPartitions struct {
	names   []string
	entries map[string]DiskoPartition
}

// Len returns the number of partition entries.
func (m DiskoPartitions) Len() int { return len(m.names) }

// Names returns the partition names in layout order.
func (m DiskoPartitions) Names() []string { return m.names }

// Get returns the entry for name.
func (m DiskoPartitions) Get(name string) (DiskoPartition, bool) {
	e, ok := m.entries[name]
	return e, ok
}

func (m *DiskoPartitions) add(name string, entry DiskoPartition) {
	if m.entries == nil {
		m.entries = make(map[string]DiskoPartition)
	}
	if _, ok := m.entries[name]; !ok {
		m.names = append(m.names, name)
	}
	m.entries[name] = entry
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m DiskoPartitions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.entries[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DiskoContent is the content section of a disko disk document. The
// partition table type is always GPT.
type DiskoContent struct {
	Type       string          `json:"type"`
	Partitions DiskoPartitions `json:"partitions"`
}

// DiskoConfig is the disko document for one disk, the output contract of
// the layout engine. Serialize it with encoding/json and feed it to the
// config generator.
type DiskoConfig struct {
	Device  string       `json:"device"`
	Type    string       `json:"type"`
	Content DiskoContent `json:"content"`
}

// DiskoConfig exports the current layout as a disko disk document.
// Partitions marked for deletion are skipped; the rest appear in layout
// order under their label, or "part<id>" when unlabeled. The GPT type
// code is only emitted for EFI system partitions.
//
// Sizes are formatted against a running used-sector total so that a
// partition meant to consume the rest of the disk comes out as "100%".
// The total is zeroed once the pass completes, which makes repeated
// exports of an unchanged disk identical rather than cumulative.
func (d *Disk) DiskoConfig() DiskoConfig {
	var parts DiskoPartitions
	for _, it := range d.layout {
		p, ok := it.(*Partition)
		if !ok || p.Status == StatusDelete {
			continue
		}

		name := p.Label
		if name == "" {
			name = fmt.Sprintf("part%d", p.id)
		}

		entry := DiskoPartition{
			Size:       DiskoSize(p.SizeBytes(), d.totalUsedSectors, d.sectorSize, d.size),
			MountPoint: p.MountPoint,
		}
		d.totalUsedSectors += p.Size

		if fs, ok := p.DiskoFSType(); ok {
			entry.Format = fs
		}
		if p.HasFlag("esp") {
			if code, ok := p.GPTCode(true); ok {
				entry.Type = code
			}
		}
		parts.add(name, entry)
	}
	d.totalUsedSectors = 0

	return DiskoConfig{
		Device: "/dev/" + d.name,
		Type:   "disk",
		Content: DiskoContent{
			Type:       "gpt",
			Partitions: parts,
		},
	}
}
