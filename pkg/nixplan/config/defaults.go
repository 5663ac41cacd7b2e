package config

// Default configuration values.
const (
	// DefaultFilesystem is the root filesystem offered by the default
	// layout action.
	DefaultFilesystem = "ext4"

	// DefaultOutput is where the confirmed plan document is written.
	DefaultOutput = "nixplan.json"

	// DefaultBootloader is preselected on the bootloader page.
	DefaultBootloader = "systemd-boot"

	// DefaultLogLevel controls the file logger.
	DefaultLogLevel = "info"
)
