package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wagiedev/sidecar-bridge-go/internal/errors"
)

const (
	// MinimumPythonVersion is the oldest interpreter the worker supports.
	MinimumPythonVersion = "3.9.0"

	// VersionCheckTimeout is the timeout for the interpreter version check.
	VersionCheckTimeout = 2 * time.Second

	// DefaultAppName names the project directory searched under $HOME.
	DefaultAppName = "fixme"

	// ancestorDepth is how many directories discovery walks up from the
	// resource dir looking for the worker script.
	ancestorDepth = 6

	// fallbackPython is used when no virtualenv interpreter exists.
	fallbackPython = "python3"
)

// ScriptPath is the worker script location relative to a project root.
var ScriptPath = filepath.Join("sidecar", "main.py")

var versionPattern = regexp.MustCompile(`Python ([0-9]+\.[0-9]+(?:\.[0-9]+)?)`)

// Config holds configuration for worker discovery.
type Config struct {
	// ResourceDir is where the host application keeps bundled resources.
	// Discovery looks for the script here first, then walks up from it.
	ResourceDir string

	// AppName names the project directory searched under $HOME.
	// Defaults to DefaultAppName.
	AppName string

	// Script is an explicit worker script path that skips the search.
	Script string

	// Python is an explicit interpreter path that skips the search.
	Python string

	// SkipVersionCheck skips the interpreter version check.
	// Can also be controlled via SIDECAR_SKIP_VERSION_CHECK env var.
	SkipVersionCheck bool

	// Logger is an optional logger for discovery operations.
	Logger *slog.Logger
}

// Result is a discovered worker.
type Result struct {
	// ProjectRoot is the directory containing sidecar/main.py.
	ProjectRoot string

	// Script is the absolute path to the worker script.
	Script string

	// Python is the interpreter to launch the script with.
	Python string

	// PythonVersion is the interpreter version when it was checked.
	PythonVersion string
}

// Discoverer locates the worker script and its interpreter.
type Discoverer interface {
	// Discover returns where the worker lives or an error wrapping
	// ErrScriptNotFound.
	Discover(ctx context.Context) (*Result, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new worker discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "discovery"),
	}
}

// Discover locates the worker script, then its interpreter, then checks
// the interpreter version.
func (d *discoverer) Discover(ctx context.Context) (*Result, error) {
	d.log.Debug("Discovering sidecar worker", "resource_dir", d.cfg.ResourceDir)

	root, script, err := d.findScript()
	if err != nil {
		d.log.Error("Failed to find sidecar script", "error", err)

		return nil, err
	}

	result := &Result{
		ProjectRoot: root,
		Script:      script,
		Python:      d.findPython(root),
	}

	d.log.Info("Found sidecar worker",
		"project_root", result.ProjectRoot,
		"script", result.Script,
		"python", result.Python,
	)

	result.PythonVersion = d.checkVersion(ctx, result.Python)

	return result, nil
}

func (d *discoverer) appName() string {
	if d.cfg.AppName != "" {
		return d.cfg.AppName
	}

	return DefaultAppName
}

// findScript returns the project root and script path.
func (d *discoverer) findScript() (string, string, error) {
	// If explicit path provided, use it and only it
	if d.cfg.Script != "" {
		if _, err := os.Stat(d.cfg.Script); err != nil {
			return "", "", fmt.Errorf("%w: %s", errors.ErrScriptNotFound, d.cfg.Script)
		}

		script, err := filepath.Abs(d.cfg.Script)
		if err != nil {
			return "", "", fmt.Errorf("resolve script path: %w", err)
		}

		return filepath.Dir(filepath.Dir(script)), script, nil
	}

	searched := make([]string, 0, ancestorDepth+3)

	if d.cfg.ResourceDir != "" {
		dir := d.cfg.ResourceDir

		for range ancestorDepth {
			searched = append(searched, dir)

			if hasScript(dir) {
				return dir, filepath.Join(dir, ScriptPath), nil
			}

			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}

			dir = parent
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		for _, dir := range homeProjectDirs(homeDir, d.appName()) {
			searched = append(searched, dir)
			d.log.Debug("Checking well-known project dir", "path", dir)

			if hasScript(dir) {
				return dir, filepath.Join(dir, ScriptPath), nil
			}
		}
	}

	return "", "", fmt.Errorf("%w: searched %v", errors.ErrScriptNotFound, searched)
}

// findPython prefers a virtualenv next to the project, then well-known
// virtualenvs under $HOME, then python3 from PATH.
func (d *discoverer) findPython(root string) string {
	if d.cfg.Python != "" {
		return d.cfg.Python
	}

	candidates := []string{
		filepath.Join(root, "venv", "bin", "python3"),
		filepath.Join(root, "venv", "Scripts", "python.exe"),
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		for _, dir := range homeProjectDirs(homeDir, d.appName()) {
			candidates = append(candidates, filepath.Join(dir, "venv", "bin", "python3"))
		}

		candidates = append(candidates, filepath.Join(homeDir, "."+d.appName(), "venv", "bin", "python3"))
	}

	for _, path := range candidates {
		if isFile(path) {
			d.log.Debug("Found virtualenv interpreter", "path", path)

			return path
		}
	}

	d.log.Debug("No virtualenv found, using system interpreter", "python", fallbackPython)

	return fallbackPython
}

// checkVersion returns the interpreter version and logs a warning if it
// is below MinimumPythonVersion. Errors are logged and ignored.
func (d *discoverer) checkVersion(ctx context.Context, python string) string {
	if d.cfg.SkipVersionCheck {
		d.log.Debug("Skipping python version check (configured)")

		return ""
	}

	if os.Getenv("SIDECAR_SKIP_VERSION_CHECK") != "" {
		d.log.Debug("Skipping python version check (SIDECAR_SKIP_VERSION_CHECK set)")

		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	// Older interpreters print the version to stderr
	output, err := exec.CommandContext(ctx, python, "--version").CombinedOutput()
	if err != nil {
		d.log.Debug("Python version check failed", "python", python, "error", err)

		return ""
	}

	match := versionPattern.FindStringSubmatch(string(output))
	if match == nil {
		d.log.Debug("Could not parse python version", "output", strings.TrimSpace(string(output)))

		return ""
	}

	version := match[1]
	if compareVersions(version, MinimumPythonVersion) < 0 {
		d.log.Warn("Python version is older than the sidecar supports",
			"python", python,
			"version", version,
			"minimum_required", MinimumPythonVersion,
		)
	} else {
		d.log.Debug("Python version check passed", "version", version, "minimum", MinimumPythonVersion)
	}

	return version
}

func homeProjectDirs(homeDir, app string) []string {
	return []string{
		filepath.Join(homeDir, "Developer", app),
		filepath.Join(homeDir, "projects", app),
		filepath.Join(homeDir, app),
	}
}

func hasScript(dir string) bool {
	return isFile(filepath.Join(dir, ScriptPath))
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// compareVersions compares two dotted versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		aNum := 0
		bNum := 0

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(aParts[i])
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(bParts[i])
		}

		if aNum < bNum {
			return -1
		}

		if aNum > bNum {
			return 1
		}
	}

	return 0
}
