package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	sidecar "github.com/wagiedev/sidecar-bridge-go"
	"github.com/wagiedev/sidecar-bridge-go/internal/config"
)

type rootFlags struct {
	config      string
	python      string
	script      string
	resourceDir string
	logLevel    string
}

type commandContext struct {
	flags *rootFlags

	// stderr receives logs; tests swap it out.
	stderr io.Writer

	configOnce sync.Once
	config     *config.File
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{
		flags:  flags,
		stderr: os.Stderr,
	}
}

func (c *commandContext) ensureConfig() (*config.File, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.LoadFile(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyFlags(cfg); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyFlags lets command line flags override the file.
func (c *commandContext) applyFlags(cfg *config.File) error {
	overrides := []struct {
		flag   string
		target *string
	}{
		{c.flags.python, &cfg.Python},
		{c.flags.script, &cfg.Script},
		{c.flags.resourceDir, &cfg.ResourceDir},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(o.flag); v != "" {
			expanded, err := config.ExpandPath(v)
			if err != nil {
				return err
			}
			*o.target = expanded
		}
	}
	if v := strings.TrimSpace(c.flags.logLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg.Validate()
}

func (c *commandContext) configValue() *config.File {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		def := config.DefaultFile()
		return &def
	}
	return cfg
}

// log returns the command logger. Logs always go to stderr so stdout stays
// clean for results and the MCP stream.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		c.logger = newLogger(c.stderr, cfg.LogFormat, cfg.SlogLevel())
	})
	return c.logger
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *commandContext) discover(ctx context.Context) (*sidecar.DiscoveryResult, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return sidecar.Discover(ctx, &sidecar.DiscoveryConfig{
		ResourceDir: cfg.ResourceDir,
		AppName:     cfg.AppName,
		Script:      cfg.Script,
		Python:      cfg.Python,
		Logger:      c.log(),
	})
}

// withBridge discovers and spawns the worker, runs fn and closes the bridge.
func (c *commandContext) withBridge(ctx context.Context, fn func(sidecar.Bridge) error) error {
	found, err := c.discover(ctx)
	if err != nil {
		return err
	}
	cfg := c.configValue()
	log := c.log()

	opts := []sidecar.Option{
		sidecar.WithLogger(log),
		sidecar.WithCatalogSchemas(),
		sidecar.WithStderr(func(line string) {
			log.Debug("sidecar stderr", "line", line)
		}),
	}
	if len(cfg.Env) > 0 {
		opts = append(opts, sidecar.WithEnv(cfg.Env))
	}
	if cfg.Cwd != "" {
		opts = append(opts, sidecar.WithCwd(cfg.Cwd))
	}

	return sidecar.WithBridge(ctx, found.Python, found.Script, fn, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
