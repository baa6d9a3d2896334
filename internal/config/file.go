package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultAppName is the application directory name used by discovery.
	DefaultAppName = "fixme"

	// DefaultCallTimeout bounds a single CLI call when the file does not set one.
	DefaultCallTimeout = 60
)

// File is the on-disk configuration consumed by the sidecar command.
type File struct {
	Python      string            `toml:"python"`
	Script      string            `toml:"script"`
	ResourceDir string            `toml:"resource_dir"`
	AppName     string            `toml:"app_name"`
	Cwd         string            `toml:"cwd"`
	Env         map[string]string `toml:"env"`
	LogLevel    string            `toml:"log_level"`
	LogFormat   string            `toml:"log_format"` // "auto", "text" or "json"
	CallTimeout int               `toml:"call_timeout"`
}

// DefaultFile returns the configuration used when no file exists.
func DefaultFile() File {
	return File{
		AppName:     DefaultAppName,
		LogLevel:    "info",
		LogFormat:   "auto",
		CallTimeout: DefaultCallTimeout,
	}
}

// LoadFile reads the TOML configuration at path.
//
// An empty path searches ~/.config/sidecar/config.toml and then
// ./sidecar.toml. A missing file is not an error: defaults are returned and
// exists reports false.
func LoadFile(path string) (*File, string, bool, error) {
	cfg := DefaultFile()

	resolvedPath, exists, err := resolveFilePath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Validate reports configuration values that cannot be used.
func (f *File) Validate() error {
	if _, err := parseLevel(f.LogLevel); err != nil {
		return err
	}

	switch f.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("log_format must be one of auto, text, json (got %q)", f.LogFormat)
	}

	if f.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must be >= 0 (got %d)", f.CallTimeout)
	}

	return nil
}

// SlogLevel returns the configured log level.
func (f *File) SlogLevel() slog.Level {
	level, _ := parseLevel(f.LogLevel)

	return level
}

// Timeout returns the per-call timeout; zero means no timeout.
func (f *File) Timeout() time.Duration {
	return time.Duration(f.CallTimeout) * time.Second
}

func (f *File) normalize() error {
	f.LogLevel = strings.ToLower(strings.TrimSpace(f.LogLevel))
	if f.LogLevel == "" {
		f.LogLevel = "info"
	}

	f.LogFormat = strings.ToLower(strings.TrimSpace(f.LogFormat))
	if f.LogFormat == "" {
		f.LogFormat = "auto"
	}

	if strings.TrimSpace(f.AppName) == "" {
		f.AppName = DefaultAppName
	}

	var err error

	for _, p := range []*string{&f.Python, &f.Script, &f.ResourceDir, &f.Cwd} {
		if *p == "" {
			continue
		}

		if *p, err = ExpandPath(*p); err != nil {
			return err
		}
	}

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", s)
	}
}

func resolveFilePath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}

		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}

			return "", false, fmt.Errorf("stat config: %w", err)
		}

		return expanded, true, nil
	}

	defaultPath, err := ExpandPath("~/.config/sidecar/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sidecar.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}

	return defaultPath, false, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(pathValue string) (string, error) {
	if pathValue != "~" && !strings.HasPrefix(pathValue, "~/") {
		return pathValue, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, strings.TrimPrefix(pathValue, "~")), nil
}
