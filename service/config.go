package service

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pagecap/browser"
	"github.com/hazyhaar/pagecap/capture"
	"github.com/hazyhaar/pagecap/store"
)

// Config configures the capture service.
type Config struct {
	// Addr is the HTTP listen address. Default: ":8472".
	Addr string `yaml:"addr"`

	// OutputDir receives artifacts as local files when no store is
	// configured. Default: "captures".
	OutputDir string `yaml:"output_dir"`

	// ManifestPath is the SQLite manifest location. Empty disables run
	// bookkeeping.
	ManifestPath string `yaml:"manifest_path"`

	// Browser configures the Chrome lifecycle.
	Browser browser.Config `yaml:"browser"`

	// Capture holds the default capture configuration; individual
	// requests may override selector lists, padding, offset, and format.
	Capture capture.Config `yaml:"capture"`

	// Store configures the S3-compatible artifact store. Nil keeps
	// artifacts on local disk.
	Store *store.Config `yaml:"store"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = ":8472"
	}
	if c.OutputDir == "" {
		c.OutputDir = "captures"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Browser.Logger = c.Logger
	c.Capture.Logger = c.Logger
	if c.Store != nil {
		c.Store.Logger = c.Logger
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("service: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("service: parse config %s: %w", path, err)
	}
	return &cfg, nil
}
