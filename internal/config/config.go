// Package config loads and saves the service configuration file and holds
// the named attractor presets.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nmlab/attractor/internal/attractor"
)

const (
	DefaultListen    = ":8742"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultDataDir   = ".attractor"
)

type Config struct {
	Listen    string           `yaml:"listen"`
	LogLevel  string           `yaml:"log_level"`
	LogFormat string           `yaml:"log_format"`
	DataDir   string           `yaml:"data_dir"`
	Record    bool             `yaml:"record"`
	Attractor attractor.Params `yaml:"attractor"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:    DefaultListen,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		DataDir:   DefaultDataDir,
		Attractor: attractor.DefaultParams(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
