package config

import (
	"os"
	"path/filepath"
	"strings"
)

const envConfigDir = "HTTPOUTLINE_CONFIG_DIR"

// Dir returns the configuration directory. HTTPOUTLINE_CONFIG_DIR wins,
// then the user config dir, then ~/.httpoutline.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(envConfigDir)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, "httpoutline")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".httpoutline")
	}
	return ".httpoutline"
}

func IndexPath() string {
	return filepath.Join(Dir(), "index.db")
}
