// Package inventory generates the inventory source documents consumed by the
// VM inventory plugin during a test session.
package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PlaceholderName is the empty configuration artifact staged inside the
// scratch inventory directory.
const PlaceholderName = "empty.vmware.yml"

// PluginConfig is the document an inventory source file carries. The plugin
// only reads files whose name ends in .vmware.yml (or .yaml), so callers are
// expected to honor that suffix.
type PluginConfig struct {
	Plugin          string `yaml:"plugin"`
	Strict          bool   `yaml:"strict"`
	Cache           bool   `yaml:"cache,omitempty"`
	CachePlugin     string `yaml:"cache_plugin,omitempty"`
	CacheConnection string `yaml:"cache_connection,omitempty"`
}

// CachedConfig returns a plugin configuration with the jsonfile cache backend
// pointed at cacheDir.
func CachedConfig(plugin, cachePlugin, cacheDir string) PluginConfig {
	return PluginConfig{
		Plugin:          plugin,
		Cache:           true,
		CachePlugin:     cachePlugin,
		CacheConnection: cacheDir,
	}
}

// PlainConfig returns a plugin configuration with caching disabled.
func PlainConfig(plugin string) PluginConfig {
	return PluginConfig{
		Plugin: plugin,
	}
}

// WriteSource serializes cfg to path as YAML.
func WriteSource(path string, cfg PluginConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory source: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write inventory source %q: %w", path, err)
	}
	return nil
}

// WritePlaceholder creates the empty placeholder configuration inside dir and
// returns its path.
func WritePlaceholder(dir string) (string, error) {
	path := filepath.Join(dir, PlaceholderName)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return "", fmt.Errorf("failed to write placeholder %q: %w", path, err)
	}
	return path, nil
}
