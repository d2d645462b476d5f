// Package config holds the process-wide viper singleton: config.yaml from
// the config directory plus REPOBEE_-prefixed environment variables.
// Profile settings (per-course) live in internal/persist; this package only
// carries the cross-profile knobs and credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/edulab/reporover/internal/persist"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate config.yaml with SetConfigFile so stray config.json
	// files are never picked up. The config directory resolution matches the
	// persistence layer (REPOBEE_CONFIG_DIR override included).
	configPath := filepath.Join(persist.ConfigDir(), "config.yaml")
	configFileSet := false
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		configFileSet = true
	}

	// Environment variables take precedence over the config file.
	// E.g. REPOBEE_PROFILE, REPOBEE_VERBOSE, REPOBEE_TOKEN.
	v.SetEnvPrefix("REPOBEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("profile", "")
	v.SetDefault("verbose", false)
	v.SetDefault("no-color", false)
	v.SetDefault("yes", false)
	v.SetDefault("http-timeout", "30s")

	// Tokens are environment-only; never written to config.yaml.
	_ = v.BindEnv("token", "REPOBEE_TOKEN")
	_ = v.BindEnv("lms-token", "REPOBEE_LMS_TOKEN")
	v.SetDefault("token", "")
	v.SetDefault("lms-token", "")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Token returns the Git platform access token from the environment.
func Token() string {
	return GetString("token")
}

// LMSToken returns the LMS API token, falling back to the platform token
// when only one is configured.
func LMSToken() string {
	if t := GetString("lms-token"); t != "" {
		return t
	}
	return GetString("token")
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}
