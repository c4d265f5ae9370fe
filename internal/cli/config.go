package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/druidq/internal/broker"
)

// ConfigEnv names the environment variable read when --config is unset.
const ConfigEnv = "DRUIDQ_CONFIG"

// Config is the druidq config file.
//
//	broker:
//	  url: http://localhost:8082
//	  timeout: 30s
//	  retry:
//	    max_tries: 5
//	  cache_size: 128
//	history:
//	  path: ./druidq.db
type Config struct {
	Broker  broker.Config `yaml:"broker"`
	History HistoryConfig `yaml:"history"`
}

// HistoryConfig locates the query history database. An empty Path
// disables recording.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LoadConfig reads a config file. Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// configPath returns --config, falling back to $DRUIDQ_CONFIG.
func (o *RootOptions) configPath() string {
	if o.Config != "" {
		return o.Config
	}
	return os.Getenv(ConfigEnv)
}

// loadConfig loads the config file. With required unset a missing path
// yields an empty config.
func (o *RootOptions) loadConfig(required bool) (*Config, error) {
	path := o.configPath()
	if path == "" {
		if required {
			return nil, fmt.Errorf("no config file: pass --config or set %s", ConfigEnv)
		}
		return &Config{}, nil
	}
	return LoadConfig(path)
}
