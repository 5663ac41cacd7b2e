package plan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixplan/nixplan/pkg/nixplan/disk"
)

func completePlan(t *testing.T) *Plan {
	t.Helper()
	d := disk.New("sda", (100<<30)/512, 512, nil)
	d.UseDefaultLayout("ext4")

	p := New()
	p.Hostname = "oganesson"
	p.Bootloader = "systemd-boot"
	p.RootPasswordHash = "$6$rounds=656000$abc"
	p.Users = []User{{Username: "alex", PasswordHash: "$6$xyz", Groups: []string{"wheel"}}}
	p.Drive = d
	return p
}

func TestNewAssignsID(t *testing.T) {
	a, b := New(), New()
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestComplete(t *testing.T) {
	p := completePlan(t)
	assert.True(t, p.Complete())

	tests := []struct {
		name   string
		mutate func(*Plan)
	}{
		{"no root password", func(p *Plan) { p.RootPasswordHash = "" }},
		{"no users", func(p *Plan) { p.Users = nil }},
		{"no drive", func(p *Plan) { p.Drive = nil }},
		{"no bootloader", func(p *Plan) { p.Bootloader = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := completePlan(t)
			tt.mutate(p)
			assert.False(t, p.Complete())
		})
	}
}

func TestDocumentShape(t *testing.T) {
	p := completePlan(t)
	data, err := p.Document()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	cfg := doc["config"].(map[string]any)
	assert.Equal(t, "oganesson", cfg["hostname"])
	assert.Equal(t, "systemd-boot", cfg["bootloader"])

	users := cfg["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "alex", users[0].(map[string]any)["username"])

	disko := doc["disko"].(map[string]any)
	assert.Equal(t, "/dev/sda", disko["device"])
	content := disko["content"].(map[string]any)
	assert.Equal(t, "gpt", content["type"])
}

func TestDocumentWithoutDrive(t *testing.T) {
	p := New()
	p.Hostname = "bare"
	data, err := p.Document()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	_, hasDisko := doc["disko"]
	assert.False(t, hasDisko)
}

func TestWriteRequiresComplete(t *testing.T) {
	p := New()
	err := p.Write(filepath.Join(t.TempDir(), "plan.json"))
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestExportAllowsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	p := New()
	p.Hostname = "wip"

	require.NoError(t, p.Export(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wip", loaded.Hostname)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	p := completePlan(t)
	p.SystemPackages = []string{"git", "vim"}
	p.EnableFlakes = true

	require.NoError(t, p.Write(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, "oganesson", loaded.Hostname)
	assert.Equal(t, []string{"git", "vim"}, loaded.SystemPackages)
	assert.True(t, loaded.EnableFlakes)
	require.Len(t, loaded.Users, 1)
	assert.Equal(t, "alex", loaded.Users[0].Username)
	assert.Nil(t, loaded.Drive, "disk layouts are re-enumerated, not restored")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
	_, err = Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err = Load(path)
	require.ErrorContains(t, err, "missing config section")
}
