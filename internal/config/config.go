package config

import (
	"fmt"
	"os"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

type Config struct {
	Hostname string             `yaml:"hostname"`
	Defaults Defaults           `yaml:"defaults"`
	Services map[string]Service `yaml:"services" validate:"dive"`
	Targets  []Target           `yaml:"targets" validate:"required,min=1,dive"`
}

// Defaults apply to every target that does not override them.
type Defaults struct {
	Host         string `yaml:"host"`
	Attempts     int    `yaml:"attempts" validate:"omitempty,min=1"`
	Delay        string `yaml:"delay"`
	ProbeTimeout string `yaml:"probe_timeout"`
	Path         string `yaml:"path"`
	Template     string `yaml:"template"`
}

// Service is a notification service definition: a Shoutrrr URL plus base
// parameters.
type Service struct {
	URL    string            `yaml:"url" validate:"required"`
	Params map[string]string `yaml:"params"`
}

// Target is one deployed unit to verify. Either url or host+port identify
// the health endpoint.
type Target struct {
	Name      string         `yaml:"name" validate:"required"`
	Container string         `yaml:"container" validate:"required"`
	URL       string         `yaml:"url" validate:"omitempty,url"`
	Host      string         `yaml:"host"`
	Port      int            `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Path      string         `yaml:"path"`
	Attempts  int            `yaml:"attempts" validate:"omitempty,min=1"`
	Delay     string         `yaml:"delay"`
	Timeout   string         `yaml:"probe_timeout"`
	Template  string         `yaml:"template"`
	Notify    []NotifyTarget `yaml:"notify"`
}

// NotifyTarget handles a plain service name string or an object with
// overrides.
type NotifyTarget struct {
	Service  string            `yaml:"service"`
	Template string            `yaml:"template"`
	Params   map[string]string `yaml:"params"`
}

func (n *NotifyTarget) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err == nil {
		n.Service = str
		return nil
	}

	type notifyAlias NotifyTarget
	var obj notifyAlias
	if err := unmarshal(&obj); err != nil {
		return fmt.Errorf("notify: must be a service name string or an object with service/template/params")
	}
	*n = NotifyTarget(obj)
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	data, err = envsubst.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("expanding env vars: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Validate checks struct constraints plus the cross-field rules the tags
// cannot express. Every target must resolve to a usable plan.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Targets))
	for i := range c.Targets {
		t := &c.Targets[i]
		if seen[t.Name] {
			return fmt.Errorf("target %q: duplicate name", t.Name)
		}
		seen[t.Name] = true

		if _, err := c.Plan(t); err != nil {
			return err
		}

		for _, ref := range t.Notify {
			if _, ok := c.Services[ref.Service]; !ok {
				return fmt.Errorf("target %q: unknown notify service %q", t.Name, ref.Service)
			}
		}
	}
	return nil
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", name, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %q", name, value)
	}
	return d, nil
}
