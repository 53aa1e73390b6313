package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/sigreer/perccli-exporter/internal/discovery"
	"github.com/sigreer/perccli-exporter/internal/hba"
	"github.com/sigreer/perccli-exporter/internal/remote"
	"github.com/sigreer/perccli-exporter/internal/smart"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor $CONFIG_FILE_PATH is set
const DefaultPath = "/etc/perccli-exporter/config.yml"

// PathEnv names the environment variable holding the config file path
const PathEnv = "CONFIG_FILE_PATH"

type Config struct {
	ListenAddress string            `yaml:"listen_address"`
	Timeout       time.Duration     `yaml:"timeout"`
	Concurrency   int               `yaml:"concurrency"`
	LogLevel      string            `yaml:"log_level"`
	HistoryDB     string            `yaml:"history_db,omitempty"`
	Perccli       Perccli           `yaml:"perccli"`
	Smartctl      Smartctl          `yaml:"smartctl"`
	Smart         Smart             `yaml:"smart"`
	Targets       map[string]Target `yaml:"targets"`

	markers [][2]byte
}

type Perccli struct {
	Path string `yaml:"path"`
}

type Smartctl struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Smart struct {
	HexMarkers []string `yaml:"hex_markers"`
}

// Target holds the SSH credentials for one host
type Target struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password,omitempty"`
	KeyFile    string `yaml:"key_file,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	KnownHosts string `yaml:"known_hosts,omitempty"`
}

// Options converts the target into executor options for host
func (t Target) Options(host string) remote.Options {
	return remote.Options{
		Host:       host,
		Port:       t.Port,
		Username:   t.Username,
		Password:   t.Password,
		KeyFile:    t.KeyFile,
		KnownHosts: t.KnownHosts,
	}
}

// LogValue keeps credentials out of logs
func (t Target) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", t.Username),
		slog.Bool("password", t.Password != ""),
		slog.String("key_file", t.KeyFile),
		slog.Int("port", t.Port),
	)
}

func defaultConfig() Config {
	return Config{
		ListenAddress: ":10424",
		Timeout:       30 * time.Second,
		Concurrency:   1,
		LogLevel:      "info",
		Perccli:       Perccli{Path: hba.DefaultPerccliPath},
		Smartctl:      Smartctl{Enabled: true, Path: discovery.DefaultSmartctlPath},
		Smart:         Smart{HexMarkers: []string{"0100", "2f00"}},
	}
}

// ResolvePath picks the config file: explicit flag, then $CONFIG_FILE_PATH, then DefaultPath
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and validates the config file. A missing file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// $PORT overrides the listen address
	if port := os.Getenv("PORT"); port != "" {
		cfg.ListenAddress = ":" + port
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("no targets configured"))
	}
	for _, name := range c.TargetNames() {
		t := c.Targets[name]
		if t.Username == "" {
			errs = append(errs, fmt.Errorf("target %s: username is required", name))
		}
		if t.Password == "" && t.KeyFile == "" {
			errs = append(errs, fmt.Errorf("target %s: password or key_file is required", name))
		}
		if t.Port < 0 || t.Port > 65535 {
			errs = append(errs, fmt.Errorf("target %s: invalid port %d", name, t.Port))
		}
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Perccli.Path == "" {
		errs = append(errs, errors.New("perccli.path is required"))
	}
	if c.Smartctl.Enabled && c.Smartctl.Path == "" {
		errs = append(errs, errors.New("smartctl.path is required when smartctl is enabled"))
	}

	markers, err := smart.ParseMarkers(c.Smart.HexMarkers)
	if err != nil {
		errs = append(errs, err)
	}
	c.markers = markers

	return errors.Join(errs...)
}

// Target looks up a configured target by name
func (c *Config) Target(name string) (Target, bool) {
	t, ok := c.Targets[name]
	return t, ok
}

// TargetNames returns the configured target names, sorted
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HexMarkers returns the validated SMART hex framing markers
func (c *Config) HexMarkers() [][2]byte {
	return c.markers
}
