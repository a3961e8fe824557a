// Package config loads and saves the srclist configuration file.
package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".srclist"
	configFile string = "config.yml"
)

// SubstitutePathRule describes a rule for substitution of recorded source
// paths. Binaries record the paths of their build machine; substitution
// maps them to where the sources live locally.
type SubstitutePathRule struct {
	// Directory path will be substituted if it matches `From`.
	From string
	// Path to which substitution is performed.
	To string
}

// SubstitutePathRules is a slice of source code path substitution rules.
type SubstitutePathRules []SubstitutePathRule

// Apply returns p with the first matching rule applied. A rule matches if
// its From is a path prefix of p ending at a component boundary.
func (rules SubstitutePathRules) Apply(p string) string {
	for _, r := range rules {
		if r.From == "" {
			continue
		}
		if p == r.From {
			return r.To
		}
		if len(p) > len(r.From) && p[:len(r.From)] == r.From && isPathSeparator(p[len(r.From)]) {
			return r.To + p[len(r.From):]
		}
	}
	return p
}

func isPathSeparator(c byte) bool {
	return c == '/' || c == '\\'
}

// Config defines all configuration options available to be set through the
// config file.
type Config struct {
	// Source code path substitution rules.
	SubstitutePath SubstitutePathRules `yaml:"substitute-path"`

	// Long selects the tabular output format by default.
	Long bool `yaml:"long"`

	// NoColor disables colorized output.
	NoColor bool `yaml:"no-color"`
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.\n", err)
		return &Config{}
	}

	data, err := os.ReadFile(fullConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Unable to read config data: %v.\n", err)
		}
		return &Config{}
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.\n", err)
		return &Config{}
	}

	return &c
}

// SaveConfig will marshal and save the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	return os.WriteFile(fullConfigFile, out, 0644)
}

func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return path.Join(home, configDir, file), nil
}
