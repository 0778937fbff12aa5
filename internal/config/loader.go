package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"pacm/internal/manager"
)

// Config holds the file-based form of the manager's runtime options.
// Zero values mean "unspecified"; ApplyOverrides lets CLI flags win over
// whatever the file sets.
type Config struct {
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	IndexURI string `json:"uri" yaml:"uri" toml:"uri"`

	HTTPUsername   string `json:"http_username" yaml:"http_username" toml:"http_username"`
	HTTPPassword   string `json:"http_password" yaml:"http_password" toml:"http_password"`
	HTTPOAuthToken string `json:"http_oauth_token" yaml:"http_oauth_token" toml:"http_oauth_token"`

	InstallDir string `json:"install_dir" yaml:"install_dir" toml:"install_dir"`
	DataDir    string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	TempDir    string `json:"temp_dir" yaml:"temp_dir" toml:"temp_dir"`

	ChecksumAlgorithm string `json:"checksum_alg" yaml:"checksum_alg" toml:"checksum_alg"`
	ClearFailedCache  bool   `json:"clear_failed_cache" yaml:"clear_failed_cache" toml:"clear_failed_cache"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyOverrides fills any field left unset in cli with the file's value,
// then returns the merged result. CLI-set fields always win.
func (c Config) ApplyOverrides(cli manager.Options) manager.Options {
	if cli.Endpoint == "" {
		cli.Endpoint = c.Endpoint
	}
	if cli.IndexURI == "" || cli.IndexURI == "/index.json" {
		if c.IndexURI != "" {
			cli.IndexURI = c.IndexURI
		}
	}
	if cli.HTTPUsername == "" {
		cli.HTTPUsername = c.HTTPUsername
	}
	if cli.HTTPPassword == "" {
		cli.HTTPPassword = c.HTTPPassword
	}
	if cli.HTTPOAuthToken == "" {
		cli.HTTPOAuthToken = c.HTTPOAuthToken
	}
	if cli.InstallDir == "" {
		cli.InstallDir = c.InstallDir
	}
	if cli.DataDir == "" {
		cli.DataDir = c.DataDir
	}
	if cli.TempDir == "" {
		cli.TempDir = c.TempDir
	}
	if cli.ChecksumAlgorithm == "" {
		cli.ChecksumAlgorithm = c.ChecksumAlgorithm
	}
	if !cli.ClearFailedCache {
		cli.ClearFailedCache = c.ClearFailedCache
	}
	return cli
}
