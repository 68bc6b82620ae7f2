// Package config loads the adscope configuration file and applies built-in
// defaults for everything the file leaves out.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/adscope/internal/dispatch"
	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// Config is the full file shape. Zero values mean "use the default".
type Config struct {
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Probe      ProbeConfig      `yaml:"probe"`
	Agent      AgentConfig      `yaml:"agent"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Output     OutputConfig     `yaml:"output"`

	taskTimeout time.Duration
}

// DispatchConfig bounds the host fan-out.
type DispatchConfig struct {
	Concurrency int `yaml:"concurrency"`

	// Timeout is a Go duration string ("90s", "5m") bounding each host's
	// task. Empty disables the per-task deadline.
	Timeout string `yaml:"timeout"`
}

// ProbeConfig tunes reachability checks.
type ProbeConfig struct {
	Attempts int `yaml:"attempts"`
}

// AgentConfig addresses the remote agents.
type AgentConfig struct {
	Scheme string `yaml:"scheme"`
	Port   int    `yaml:"port"`
}

// ClassifierConfig adds locale-specific failure-matching rules on top of the
// built-in canonical table.
type ClassifierConfig struct {
	Locales []LocaleRules `yaml:"locales"`
}

// LocaleRules is one locale's substring table.
type LocaleRules struct {
	Locale string     `yaml:"locale"`
	Rules  []RuleSpec `yaml:"rules"`
}

// RuleSpec maps one substring to a classification name.
type RuleSpec struct {
	Substring      string `yaml:"substring"`
	Classification string `yaml:"classification"`
}

// OutputConfig sets the default artifact destination.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// DefaultPath returns the conventional config file location,
// ~/.adscope/config.yaml. An empty string means no home directory exists.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".adscope", "config.yaml")
}

// Load reads and validates the file at path. An empty path falls back to
// DefaultPath, and a missing file at the default location is not an error;
// a missing file at an explicitly given path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeConfigNotFound,
			fmt.Sprintf("cannot read config file: %s", path), err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.NewConfigInvalidError(path, err)
	}

	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Dispatch.Concurrency <= 0 {
		c.Dispatch.Concurrency = dispatch.DefaultConcurrency
	}
	if c.Probe.Attempts <= 0 {
		c.Probe.Attempts = remote.DefaultProbeAttempts
	}
	if c.Agent.Scheme == "" {
		c.Agent.Scheme = "http"
	}
	if c.Agent.Port <= 0 {
		c.Agent.Port = remote.DefaultAgentPort
	}
}

func (c *Config) validate() error {
	if c.Agent.Scheme != "http" && c.Agent.Scheme != "https" {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("agent.scheme must be http or https, got %q", c.Agent.Scheme))
	}
	if c.Agent.Port > 65535 {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("agent.port out of range: %d", c.Agent.Port))
	}

	if c.Dispatch.Timeout != "" {
		d, err := time.ParseDuration(c.Dispatch.Timeout)
		if err != nil || d < 0 {
			return errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("dispatch.timeout is not a valid duration: %q", c.Dispatch.Timeout)).
				WithSuggestion(`Use a Go duration string such as "90s" or "5m"`)
		}
		c.taskTimeout = d
	}

	for _, locale := range c.Classifier.Locales {
		for _, rule := range locale.Rules {
			if rule.Substring == "" {
				return errors.New(errors.ErrCodeConfigInvalid,
					fmt.Sprintf("classifier rule in locale %q has an empty substring", locale.Locale))
			}
			if !knownClassification(rule.Classification) {
				return errors.New(errors.ErrCodeConfigInvalid,
					fmt.Sprintf("classifier rule in locale %q names unknown classification %q",
						locale.Locale, rule.Classification))
			}
		}
	}

	return nil
}

func knownClassification(name string) bool {
	switch errors.Classification(name) {
	case errors.ClassUnreachableHost,
		errors.ClassTransportAuthFailure,
		errors.ClassRemoteExecutionFailure,
		errors.ClassArtifactTransferFailure,
		errors.ClassTimedOut:
		return true
	default:
		return false
	}
}

// TaskTimeout returns the parsed per-task deadline, zero when disabled.
func (c *Config) TaskTimeout() time.Duration {
	return c.taskTimeout
}

// ClassifierRules flattens the configured locale tables into classifier
// rules, in file order.
func (c *Config) ClassifierRules() []errors.Rule {
	var rules []errors.Rule
	for _, locale := range c.Classifier.Locales {
		for _, spec := range locale.Rules {
			rules = append(rules, errors.Rule{
				Contains: spec.Substring,
				Class:    errors.Classification(spec.Classification),
			})
		}
	}
	return rules
}
