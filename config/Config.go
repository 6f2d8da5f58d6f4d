/*
File Name:  Config.go

Configuration loading, adapted from the reference core's Settings.go /
Config.go: a YAML file, a //go:embed-ed default document used when the
file is absent or empty, and a struct with yaml tags. Unlike the
reference core, every field here also has a CLI-flag override and a
missing config file is never a fatal error — the built-in default
simply applies.
*/

package config

import (
	_ "embed" // required for embedding the default config document
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed "Config Default.yaml"
var defaultConfig []byte

// Config holds every value that the listen/send commands may source from a YAML file
// instead of a flag.
type Config struct {
	ListenPort             int    `yaml:"ListenPort"`
	DestPort               int    `yaml:"DestPort"`
	MustEncrypt            bool   `yaml:"MustEncrypt"`
	AllowDangerousFilepath bool   `yaml:"AllowDangerousFilepath"`
	LedgerPath             string `yaml:"LedgerPath"`
	StatusAddr             string `yaml:"StatusAddr"`
}

// Load reads the YAML configuration at filename. If filename is empty, does not exist, or is
// empty, the built-in default document is used instead — this is not an error.
func Load(filename string) (*Config, error) {
	data := defaultConfig

	if filename != "" {
		stat, err := os.Stat(filename)
		switch {
		case err != nil && os.IsNotExist(err):
			// fall through to default
		case err != nil:
			return nil, err
		case stat.Size() == 0:
			// fall through to default
		default:
			if data, err = os.ReadFile(filename); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg as YAML to filename.
func Save(cfg *Config, filename string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
