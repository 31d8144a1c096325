// Package cli implements the phrasetower command-line interface.
//
// The CLI builds subsumption hierarchies from phrase documents, persists
// them through the configured storage driver and lets users query, prune,
// render and browse the result. It is built on cobra and logs through
// charmbracelet/log.
//
// # Commands
//
//   - build: ingest a document and insert its phrases into the hierarchy
//   - roots, show: query the hierarchy
//   - narrow, delete: prune edges and elements
//   - render: draw the hierarchy as DOT, SVG, PNG, PDF or JSON
//   - browse: walk the hierarchy interactively
//   - cache, config: inspect local state
//
// # Hierarchy Source
//
// Query commands read the hierarchy from the configured repository, or from
// an exported JSON file given with --from. Commands that change the
// hierarchy write it back to the same place.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context and retrieved with loggerFromContext.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/buildinfo"
	"github.com/matzehuels/phrasetower/pkg/cache"
	"github.com/matzehuels/phrasetower/pkg/config"
	"github.com/matzehuels/phrasetower/pkg/pipeline"
	"github.com/matzehuels/phrasetower/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "phrasetower"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	out        *printer
	configPath string
	verbose    bool
	metrics    bool
	shutdown   func(context.Context) error
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		out:    newPrinter(os.Stdout),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Phrasetower arranges phrases into a subsumption hierarchy",
		Long: `Phrasetower builds a hierarchy over phrases by token containment: a phrase
is placed below every most specific phrase whose tokens it contains. The
hierarchy is built incrementally, persisted, and can be queried, pruned,
rendered and browsed.`,
		Version:            buildinfo.Read().Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/phrasetower/config.toml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&c.metrics, "metrics", false, "print OpenTelemetry metrics to stderr on exit")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.rootsCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.narrowCommand())
	root.AddCommand(c.deleteCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over the configured repository and
// cache. The caller must Close it.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	logger := loggerFromContext(ctx)
	repo, err := storage.Open(c.Config.Storage, logger)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Read().Version+":")
	r := pipeline.NewRunner(c.newCache(noCache), keyer, repo, logger)
	if c.Config.Cache.TTL > 0 {
		r.TTL = c.Config.Cache.TTL
	}
	return r, nil
}

func (c *CLI) newCache(noCache bool) cache.Cache {
	if noCache || !c.Config.Cache.Enabled {
		return cache.NewNullCache()
	}
	dir, err := c.Config.CachePath()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// parseIDs parses element IDs from arguments. Each argument may itself be a
// comma-separated list.
func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid element id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
