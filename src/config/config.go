package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given.
const DefaultFile = ".whanos.yml"

// Config is the top-level orchestrator configuration.
//
// It is assembled once at process start from the optional config file and a
// snapshot of the environment, then passed explicitly to everything that needs
// it. Nothing downstream reads process environment on its own.
type Config struct {
	// Requires is an optional semver constraint on the running whanos version,
	// e.g. ">= 0.3, < 1.0". Ignored for dev builds.
	Requires string `yaml:"requires"`

	Docker DockerConfig `yaml:"docker"`

	// BaseImages overrides the compiled-in base image per language name.
	// WHANOS_BASE_IMAGE_<LANG> still wins over these.
	BaseImages map[string]string `yaml:"base_images"`

	// Labels controls whether the git revision is attached to built images
	// as an OCI label. Default: true.
	Labels *bool `yaml:"labels"`

	// Env is the environment captured at startup. Not read from YAML.
	Env Env `yaml:"-"`
}

// Load reads configuration from a YAML file and captures the environment.
// If path is empty, it tries the default file and returns defaults when that
// file doesn't exist. An explicitly named file must exist.
func Load(path string, env Env) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := defaults()
	cfg.Env = env

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Docker.Binary == "" {
		cfg.Docker.Binary = defaultDockerBinary
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Docker:     DefaultDockerConfig(),
		BaseImages: map[string]string{},
		Env:        Env{},
	}
}

// Default returns the configuration used when no file is present, with the
// given environment snapshot.
func Default(env Env) *Config {
	cfg := defaults()
	if env != nil {
		cfg.Env = env
	}
	return cfg
}

// Getenv returns the captured value of an environment variable.
func (c *Config) Getenv(key string) string {
	return c.Env.Get(key)
}

// ConfiguredBaseImage returns the config-file base image for a language, or "".
// Keys match case-insensitively; an exact key wins.
func (c *Config) ConfiguredBaseImage(language string) string {
	if img, ok := c.BaseImages[language]; ok {
		return img
	}
	for k, img := range c.BaseImages {
		if strings.EqualFold(k, language) {
			return img
		}
	}
	return ""
}

// LabelsEnabled reports whether revision labels should be added to builds.
func (c *Config) LabelsEnabled() bool {
	return c.Labels == nil || *c.Labels
}
