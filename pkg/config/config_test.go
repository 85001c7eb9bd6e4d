package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roffe/passdiag"
)

const sample = `
driver: /usr/local/lib/libop20pt32.so
ecu: ezs
session_type: 0x86
keepalive_interval: 500ms
ecus:
  ezs:
    source_address: 0x4E0
    target_address: 0x5FF
    id_format: standard
    baud_rate: 500000
    block_size: 8
    separation_time_min: 20
  truck:
    source_address: 0x18DA00F1
    target_address: 0x18DAF100
    id_format: 29bit
    baud_rate: 250000
    addressing: physical
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver != "/usr/local/lib/libop20pt32.so" || cfg.SessionType != 0x86 || cfg.KeepAliveInterval != 500*time.Millisecond {
		t.Errorf("got %+v", cfg)
	}

	tests := []struct {
		name string
		want passdiag.TransportConfig
	}{
		{"", passdiag.TransportConfig{Name: "ezs", SourceAddress: 0x4E0, TargetAddress: 0x5FF, BaudRate: 500000, BlockSize: 8, SeparationTimeMin: 20}},
		{"truck", passdiag.TransportConfig{Name: "truck", SourceAddress: 0x18DA00F1, TargetAddress: 0x18DAF100, IDFormat: passdiag.ExtendedID, BaudRate: 250000}},
		{"engine", passdiag.TransportConfig{Name: "engine", SourceAddress: 0x7E0, TargetAddress: 0x7E8, BaudRate: 500000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.Preset(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
	if _, err := cfg.Preset("nope"); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"syntax", "ecus: [", nil},
		{"bad id format", "ecus:\n  x:\n    id_format: 12bit\n", nil},
		{"address range", "ecus:\n  x:\n    source_address: 0x800\n    target_address: 0x7E8\n    baud_rate: 500000\n", passdiag.ErrInvalidAddress},
		{"missing default", "ecu: nope\n", nil},
		{"session type", "session_type: 0x100\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("got %v, want LoadError", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ECU != "ezs" {
		t.Errorf("ecu = %q", cfg.ECU)
	}

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	var le *LoadError
	if !errors.As(err, &le) || le.File == "" {
		t.Errorf("got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := Default().Save(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := cfg.Preset("functional")
	if err != nil {
		t.Fatal(err)
	}
	if got.Addressing != passdiag.Functional || got.FlowControlAddress != 0x7E0 || cfg.KeepAliveInterval != 250*time.Millisecond {
		t.Errorf("got %+v", got)
	}
}
