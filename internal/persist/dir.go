// Package persist owns everything under the config directory: profile
// settings, roster snapshots, and the active-profile marker. Writes go
// through an atomic tmp+rename protocol; the paired profile+roster swap
// additionally keeps .bak siblings so a crash always leaves a recoverable
// pair on disk.
package persist

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "reporover"

// ConfigDir resolves the config directory: the REPOBEE_CONFIG_DIR override,
// then the OS config directory, then a per-OS fallback when even that is
// unavailable.
func ConfigDir() string {
	if dir := os.Getenv("REPOBEE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, appDirName)
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", appDirName)
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default:
		return filepath.Join(home, ".config", appDirName)
	}
}
