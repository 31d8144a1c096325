package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/buildinfo"
	"github.com/matzehuels/phrasetower/pkg/config"
	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/observability"
	"github.com/matzehuels/phrasetower/pkg/observability/otelhooks"
)

// setup runs before every command. It loads the configuration file, applies
// the log level and installs metrics hooks when --metrics is set. The
// command's logger, prefixed with its name, goes into the context and its
// output stream backs the printer.
//
// Configuration is read from --config when given. Otherwise the default
// location is tried and a missing file falls back to config.Default.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg

	level := cfg.LogLevel()
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)

	if c.metrics {
		provider, shutdown, err := otelhooks.NewStdoutProvider(os.Stderr, buildinfo.Read().Version)
		if err != nil {
			return err
		}
		hooks, err := otelhooks.New(provider)
		if err != nil {
			_ = shutdown(cmd.Context())
			return err
		}
		observability.SetBuildHooks(hooks)
		observability.SetStorageHooks(hooks)
		observability.SetCacheHooks(hooks)
		c.shutdown = shutdown
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger.WithPrefix(cmd.Name())))
	c.out = newPrinter(cmd.OutOrStdout())
	return nil
}

// teardown flushes metrics after a successful command.
func (c *CLI) teardown(cmd *cobra.Command, _ []string) error {
	if c.shutdown == nil {
		return nil
	}
	err := c.shutdown(context.WithoutCancel(cmd.Context()))
	c.shutdown = nil
	observability.Reset()
	return err
}

func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	path, err := config.Path()
	if err != nil {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return config.Default(), nil
	}
	return cfg, err
}
