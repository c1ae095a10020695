package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Built-in fallbacks, used when neither the target nor the defaults section
// says otherwise. Five attempts every five seconds matches a first-time
// deployment; rapid-diagnostics callers pass attempts=1 instead.
const (
	DefaultAttempts     = 5
	DefaultDelay        = 5 * time.Second
	DefaultProbeTimeout = 3 * time.Second
	DefaultHost         = "localhost"
	DefaultPath         = "/health"
)

// DefaultConfigPaths returns the search order for config files.
func DefaultConfigPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "readycheck", "config.yaml"))
	}
	paths = append(paths, "/etc/readycheck/config.yaml")
	return paths
}

// Resolve loads the config from the given explicit path, or searches the
// default locations. It fills in Hostname from os.Hostname() if empty.
func Resolve(explicit string) (*Config, error) {
	path, err := findConfig(explicit)
	if err != nil {
		return nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if cfg.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolving hostname: %w", err)
		}
		cfg.Hostname = h
	}

	return cfg, nil
}

// Path returns the config file path Resolve would load, without loading it.
func Path(explicit string) (string, error) {
	return findConfig(explicit)
}

func findConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched %v)", DefaultConfigPaths())
}

// Plan is a target resolved against the defaults into concrete verification
// parameters.
type Plan struct {
	Name         string
	Container    string
	URL          string
	Port         int
	Path         string
	Attempts     int
	Delay        time.Duration
	ProbeTimeout time.Duration
	Template     string
	Notify       []NotifyTarget
}

// Plan resolves one target: fill defaults, compose or decompose the health
// endpoint URL, and parse durations. The probe timeout must stay strictly
// below the inter-attempt delay so probes never overlap the next attempt.
func (c *Config) Plan(t *Target) (*Plan, error) {
	p := &Plan{
		Name:      t.Name,
		Container: t.Container,
		Template:  firstNonEmpty(t.Template, c.Defaults.Template),
		Notify:    t.Notify,
	}

	p.Attempts = t.Attempts
	if p.Attempts == 0 {
		p.Attempts = c.Defaults.Attempts
	}
	if p.Attempts == 0 {
		p.Attempts = DefaultAttempts
	}

	var err error
	if p.Delay, err = parseDuration(t.Name+": delay", firstNonEmpty(t.Delay, c.Defaults.Delay), DefaultDelay); err != nil {
		return nil, err
	}
	if p.ProbeTimeout, err = parseDuration(t.Name+": probe_timeout", firstNonEmpty(t.Timeout, c.Defaults.ProbeTimeout), DefaultProbeTimeout); err != nil {
		return nil, err
	}
	if p.ProbeTimeout >= p.Delay {
		return nil, fmt.Errorf("target %q: probe_timeout %s must be shorter than delay %s", t.Name, p.ProbeTimeout, p.Delay)
	}

	if t.URL != "" {
		u, err := url.Parse(t.URL)
		if err != nil {
			return nil, fmt.Errorf("target %q: invalid url: %w", t.Name, err)
		}
		p.URL = t.URL
		p.Path = firstNonEmpty(u.Path, DefaultPath)
		p.Port = 80
		if ps := u.Port(); ps != "" {
			if p.Port, err = strconv.Atoi(ps); err != nil {
				return nil, fmt.Errorf("target %q: invalid port in url: %w", t.Name, err)
			}
		}
		return p, nil
	}

	if t.Port == 0 {
		return nil, fmt.Errorf("target %q: either url or port is required", t.Name)
	}
	host := firstNonEmpty(t.Host, c.Defaults.Host, DefaultHost)
	p.Port = t.Port
	p.Path = firstNonEmpty(t.Path, c.Defaults.Path, DefaultPath)
	p.URL = fmt.Sprintf("http://%s:%d%s", host, t.Port, p.Path)
	return p, nil
}

// Plans resolves every configured target, or the named subset in the given
// order.
func (c *Config) Plans(names []string) ([]*Plan, error) {
	if len(names) == 0 {
		plans := make([]*Plan, 0, len(c.Targets))
		for i := range c.Targets {
			p, err := c.Plan(&c.Targets[i])
			if err != nil {
				return nil, err
			}
			plans = append(plans, p)
		}
		return plans, nil
	}

	plans := make([]*Plan, 0, len(names))
	for _, name := range names {
		t := c.FindTarget(name)
		if t == nil {
			return nil, fmt.Errorf("target %q not found in config", name)
		}
		p, err := c.Plan(t)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// FindTarget returns the target with the given name, or nil if not found.
func (c *Config) FindTarget(name string) *Target {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i]
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
