// Package config locates the prompt store and loads optional settings from
// its config.yaml.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/promptdiff/internal/errors"
)

// StoreDirName is the store directory promptdiff looks for.
const StoreDirName = ".promptdiff"

// EnvStoreDir overrides store discovery when set.
const EnvStoreDir = "PROMPTDIFF_DIR"

// Config carries the optional settings of a store, read from config.yaml in
// the store directory. Zero values mean defaults.
type Config struct {
	// Scorer selects semantic similarity: "jaccard", "embedding", or
	// "none". Empty means jaccard.
	Scorer string `yaml:"scorer,omitempty"`

	// EmbeddingModel names the OpenAI embedding model when Scorer is
	// "embedding".
	EmbeddingModel string `yaml:"embedding_model,omitempty"`

	// ServerPort is the HTTP API port. Zero means 8080.
	ServerPort int `yaml:"server_port,omitempty"`

	// GitSync disables automatic git commits when false. Defaults to true.
	GitSync *bool `yaml:"git_sync,omitempty"`
}

// configFile is the settings file inside the store directory.
const configFile = "config.yaml"

// DefaultScorer is used when config.yaml names none.
const DefaultScorer = "jaccard"

// ResolveStoreDir finds the store directory. Precedence: the PROMPTDIFF_DIR
// environment variable, then the nearest .promptdiff walking up from the
// working directory, then .promptdiff in the working directory itself (for
// init of a fresh store).
func ResolveStoreDir() (string, error) {
	if dir := os.Getenv(EnvStoreDir); dir != "" {
		return dir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.StorageError("determine working directory", err)
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, StoreDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}

	return filepath.Join(cwd, StoreDirName), nil
}

// Load reads config.yaml from the store directory. A missing file yields
// defaults, not an error.
func Load(storeDir string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(filepath.Join(storeDir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.StorageError("read config.yaml", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.ValidationError("config.yaml is not valid YAML: " + err.Error())
	}
	return cfg, nil
}

// Save writes config.yaml into the store directory.
func Save(storeDir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.InternalError("encode config: " + err.Error())
	}
	if err := os.WriteFile(filepath.Join(storeDir, configFile), data, 0644); err != nil {
		return errors.StorageError("write config.yaml", err)
	}
	return nil
}

// ScorerName returns the configured scorer with the default applied.
func (c *Config) ScorerName() string {
	if c.Scorer == "" {
		return DefaultScorer
	}
	return c.Scorer
}

// Port returns the configured HTTP port with the default applied.
func (c *Config) Port() int {
	if c.ServerPort == 0 {
		return 8080
	}
	return c.ServerPort
}

// GitSyncEnabled reports whether store mutations should be committed.
func (c *Config) GitSyncEnabled() bool {
	if c.GitSync == nil {
		return true
	}
	return *c.GitSync
}
