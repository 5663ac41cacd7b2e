// Package plan holds the overall install plan the TUI assembles: system
// settings, user accounts, package selection and the chosen disk layout.
// At confirm time the plan is flattened into a single JSON document for
// the downstream config generator.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/nixplan/nixplan/pkg/nixplan/disk"
	"github.com/nixplan/nixplan/pkg/nixplan/logging"
)

// ErrIncomplete indicates the plan is missing a hard requirement and
// cannot be exported yet.
var ErrIncomplete = errors.New("plan is incomplete")

// User is one user account to create on the installed system.
type User struct {
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
	Groups       []string `json:"groups"`
}

// Plan accumulates every choice made during the session. Zero values mean
// "not chosen yet"; Complete reports whether the hard requirements are met.
type Plan struct {
	// ID identifies this plan document across save and resume.
	ID string `json:"id"`

	Hostname           string   `json:"hostname,omitempty"`
	Language           string   `json:"language,omitempty"`
	KeyboardLayout     string   `json:"keyboard_layout,omitempty"`
	Locale             string   `json:"locale,omitempty"`
	Timezone           string   `json:"timezone,omitempty"`
	Bootloader         string   `json:"bootloader,omitempty"`
	Profile            string   `json:"profile,omitempty"`
	AudioBackend       string   `json:"audio_backend,omitempty"`
	Greeter            string   `json:"greeter,omitempty"`
	DesktopEnvironment string   `json:"desktop_environment,omitempty"`
	NetworkBackend     string   `json:"network_backend,omitempty"`
	EnableFlakes       bool     `json:"enable_flakes"`
	UseSwap            bool     `json:"use_swap"`
	RootPasswordHash   string   `json:"root_passwd_hash,omitempty"`
	Kernels            []string `json:"kernels,omitempty"`
	SystemPackages     []string `json:"system_pkgs,omitempty"`
	Users              []User   `json:"users,omitempty"`

	// Drive is the disk layout being edited. It is not part of the plan's
	// own JSON; Document projects it through the disko export instead.
	Drive *disk.Disk `json:"-"`
}

// New returns an empty plan with a fresh document id.
func New() *Plan {
	return &Plan{ID: uuid.NewString()}
}

// Complete reports whether every hard requirement has been chosen: a root
// password, at least one user, a disk layout and a bootloader.
func (p *Plan) Complete() bool {
	return p.RootPasswordHash != "" &&
		len(p.Users) > 0 &&
		p.Drive != nil &&
		p.Bootloader != ""
}

// document is the combined export shape consumed by the config generator.
type document struct {
	Config *Plan             `json:"config"`
	Disko  *disk.DiskoConfig `json:"disko,omitempty"`
}

// Document flattens the plan and its disk layout into the export JSON.
func (p *Plan) Document() ([]byte, error) {
	doc := document{Config: p}
	if p.Drive != nil {
		cfg := p.Drive.DiskoConfig()
		doc.Disko = &cfg
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Export writes the document to path without checking completeness, so a
// half-finished session can still be saved and resumed.
func (p *Plan) Export(path string) error {
	data, err := p.Document()
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	logging.Get("plan").Info("plan written", "path", path, "id", p.ID, "complete", p.Complete())
	return nil
}

// Write validates the plan and writes the export document to path.
func (p *Plan) Write(path string) error {
	if !p.Complete() {
		return fmt.Errorf("%w: need root password, a user, a disk layout and a bootloader", ErrIncomplete)
	}
	return p.Export(path)
}

// Load reads a previously exported document and returns its config
// section. Disk layouts are not restored; devices must be re-enumerated
// against current hardware and re-selected.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var doc struct {
		Config *Plan `json:"config"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if doc.Config == nil {
		return nil, fmt.Errorf("decode plan: missing config section")
	}
	if doc.Config.ID == "" {
		doc.Config.ID = uuid.NewString()
	}
	return doc.Config, nil
}
