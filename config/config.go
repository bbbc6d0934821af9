// Package config loads the viewer's settings from JSON or YAML.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// Config is the viewer configuration. Paths may start with ~.
type Config struct {
	ConfigPath string `json:"-" yaml:"-"`

	// ManifestPath is a tab-delimited file with zip_file and dicom_file
	// columns.
	ManifestPath string `json:"manifest" yaml:"manifest"`

	// DicomRoot is prefixed to every zip_file (or bare dicom_file) in the
	// manifest. It may be a gs:// prefix.
	DicomRoot string `json:"dicom_root" yaml:"dicom_root"`

	Port    int `json:"port" yaml:"port"`
	Workers int `json:"workers" yaml:"workers"`

	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogConsole bool   `json:"log_console" yaml:"log_console"`

	// DefaultFormat is png or bmp.
	DefaultFormat string `json:"default_format" yaml:"default_format"`

	// CineDelay is the delay between GIF frames in hundredths of a second.
	CineDelay int `json:"cine_delay" yaml:"cine_delay"`
}

// DefaultConfig returns the settings used for anything a file leaves out.
func DefaultConfig() Config {
	return Config{
		Port:          9019,
		Workers:       runtime.NumCPU(),
		LogLevel:      "info",
		LogConsole:    true,
		DefaultFormat: "png",
		CineDelay:     5,
	}
}

// Load reads path as YAML if it ends in .yaml or .yml and as JSON
// otherwise, on top of DefaultConfig. The result is not validated, since
// callers may still override fields.
func Load(path string) (Config, error) {
	out := DefaultConfig()
	out.ConfigPath = path

	data, err := os.ReadFile(expandHomeDir(path))
	if err != nil {
		return out, pfx.Err(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return out, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}
	default:
		if err := json.Unmarshal(data, &out); err != nil {
			if e, ok := err.(*json.SyntaxError); ok {
				return out, pfx.Err(fmt.Errorf("%s: syntax error at byte offset %d: %w", path, e.Offset, err))
			}
			return out, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}
	}

	out.ConfigPath = expandHomeDir(out.ConfigPath)
	out.ManifestPath = expandHomeDir(out.ManifestPath)
	out.DicomRoot = expandHomeDir(out.DicomRoot)

	return out, nil
}

// Validate reports settings the viewer cannot run with.
func (c Config) Validate() error {
	if c.ManifestPath == "" {
		return fmt.Errorf("no manifest configured")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.CineDelay < 0 {
		return fmt.Errorf("cine delay must not be negative, got %d", c.CineDelay)
	}
	switch strings.ToLower(c.DefaultFormat) {
	case "png", "bmp":
	default:
		return fmt.Errorf("default format %q is not png or bmp", c.DefaultFormat)
	}

	return nil
}

func expandHomeDir(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}

	dir := usr.HomeDir

	if path == "~" {
		path = dir
	} else if strings.HasPrefix(path, "~/") {
		// HasPrefix so that /something/~/something/ is left alone
		path = filepath.Join(dir, path[2:])
	}

	return path
}
