package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bigcalc/bigcalc/internal/constants"
)

// Config is the optional site.toml of the web sub-project.
type Config struct {
	Title     string   `toml:"title"`
	PublicURL string   `toml:"public_url"`
	Assets    []string `toml:"assets"`
	// Compress controls the brotli sidecar; nil means enabled.
	Compress *bool `toml:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Title:     "bigcalc",
		PublicURL: "./",
	}
}

// LoadConfig reads site.toml from dir, falling back to defaults when the
// file is absent.
func LoadConfig(dir string) (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(dir, constants.DefaultSiteSettingsFileName)

	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = "./"
	}
	if !strings.HasSuffix(cfg.PublicURL, "/") {
		cfg.PublicURL += "/"
	}
	for _, asset := range cfg.Assets {
		if filepath.IsAbs(asset) || strings.HasPrefix(filepath.Clean(asset), "..") {
			return Config{}, fmt.Errorf("%s: asset %q must stay inside the project", path, asset)
		}
	}
	return cfg, nil
}

func (c Config) CompressEnabled() bool {
	return c.Compress == nil || *c.Compress
}

// exists distinguishes a missing path from other stat failures.
func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
