// Package config loads the CLI's configuration from the environment and an
// optional YAML file.
package config

import (
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

type Config struct {
	Home      string `yaml:"home"`
	DataDir   string `yaml:"data_dir"`
	PoolPages int    `yaml:"pool_pages"`
	Verbose   bool   `yaml:"verbose"`
}

func LoadConfig(homeOverride, configOverride string) (*Config, error) {
	home := homeOverride
	if home == "" {
		home = os.Getenv("RIDX_HOME")
	}

	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		home = filepath.Join(userHome, ".local", "share", "ridx")
	}

	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, err
	}

	cfg := &Config{
		Home:      home,
		DataDir:   filepath.Join(home, "data"),
		PoolPages: 1024,
	}

	cfgPath := configOverride
	if cfgPath == "" {
		cfgPath = filepath.Join(home, "config.yaml")
	}

	if f, err := os.Open(cfgPath); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	}

	_ = os.MkdirAll(cfg.DataDir, 0o755)

	return cfg, nil
}
