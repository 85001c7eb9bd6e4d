// Package config loads the YAML configuration: which passthru driver to use
// and the transport settings of known ECUs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/roffe/passdiag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Driver is a J2534 library path used instead of the discovered ones.
	Driver string `yaml:"driver,omitempty"`
	// Device selects a discovered driver by name.
	Device            string                              `yaml:"device,omitempty"`
	ECU               string                              `yaml:"ecu"`
	SessionType       int                                 `yaml:"session_type"`
	KeepAliveInterval time.Duration                       `yaml:"keepalive_interval"`
	ECUs              map[string]passdiag.TransportConfig `yaml:"ecus"`
}

type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

func Default() *Config {
	return &Config{
		ECU:               "engine",
		SessionType:       0x92,
		KeepAliveInterval: 250 * time.Millisecond,
		ECUs: map[string]passdiag.TransportConfig{
			"engine": {
				SourceAddress:     0x7E0,
				TargetAddress:     0x7E8,
				IDFormat:          passdiag.StandardID,
				BaudRate:          500000,
				BlockSize:         0,
				SeparationTimeMin: 0,
			},
			"transmission": {
				SourceAddress:     0x7E1,
				TargetAddress:     0x7E9,
				IDFormat:          passdiag.StandardID,
				BaudRate:          500000,
				BlockSize:         0,
				SeparationTimeMin: 0,
			},
			"functional": {
				SourceAddress:      0x7DF,
				TargetAddress:      0x7E8,
				FlowControlAddress: 0x7E0,
				IDFormat:           passdiag.StandardID,
				BaudRate:           500000,
				Addressing:         passdiag.Functional,
			},
		},
	}
}

// DefaultPath is config.yaml in the user configuration directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "passdiag.yaml"
	}
	return filepath.Join(dir, "passdiag", "config.yaml")
}

// Parse reads YAML on top of the defaults. Presets given in data are added
// to the built in ones, replacing those with the same name.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	defaults := cfg.ECUs
	cfg.ECUs = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	for name, ecu := range defaults {
		if cfg.ECUs == nil {
			cfg.ECUs = make(map[string]passdiag.TransportConfig)
		}
		if _, ok := cfg.ECUs[name]; !ok {
			cfg.ECUs[name] = ecu
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the file at path. A missing file at DefaultPath is not an
// error, the defaults are returned.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SessionType < 0 || c.SessionType > 0xFF {
		return &LoadError{Message: fmt.Sprintf("session_type 0x%X does not fit a byte", c.SessionType)}
	}
	if c.KeepAliveInterval < 0 {
		return &LoadError{Message: "keepalive_interval must not be negative"}
	}
	for name, ecu := range c.ECUs {
		if err := ecu.Validate(); err != nil {
			return &LoadError{Message: fmt.Sprintf("ecu %q", name), Cause: err}
		}
	}
	if c.ECU != "" {
		if _, ok := c.ECUs[c.ECU]; !ok {
			return &LoadError{Message: fmt.Sprintf("default ecu %q is not defined", c.ECU)}
		}
	}
	return nil
}

// Preset returns the transport settings for the named ECU, the default ECU
// when name is empty.
func (c *Config) Preset(name string) (passdiag.TransportConfig, error) {
	if name == "" {
		name = c.ECU
	}
	ecu, ok := c.ECUs[name]
	if !ok {
		return passdiag.TransportConfig{}, fmt.Errorf("unknown ecu %q, have %v", name, c.Names())
	}
	if ecu.Name == "" {
		ecu.Name = name
	}
	return ecu, nil
}

func (c *Config) Names() []string {
	names := make([]string, 0, len(c.ECUs))
	for name := range c.ECUs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes c as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
