package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/graph"
	phio "github.com/matzehuels/phrasetower/pkg/io"
	"github.com/matzehuels/phrasetower/pkg/pipeline"
)

// maxFailuresShown caps the per-element failure lines printed after a build.
const maxFailuresShown = 5

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	output     string // export the built hierarchy as JSON
	replace    bool   // replace stored elements that share an ID
	rebuild    bool   // clear every edge and build from scratch
	refresh    bool   // bypass the build cache
	noCache    bool   // disable caching entirely
	exhaustive bool   // compare against every placed element when relinking
	isolated   string // isolated element policy: settle or recheck
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build [document]",
		Short: "Insert the phrases of a document into the hierarchy",
		Long: `Build reads an ingestion document (JSON, or CSV when the file ends in .csv),
inserts its phrases into the stored hierarchy and persists the result.

Phrases that are already stored are skipped unless --replace is given.
Use --rebuild to recompute every edge from scratch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "also export the hierarchy as JSON to this file")
	cmd.Flags().BoolVar(&opts.replace, "replace", false, "replace stored elements with the same ID")
	cmd.Flags().BoolVar(&opts.rebuild, "rebuild", false, "clear all edges and rebuild from scratch")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached builds")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.exhaustive, "exhaustive", false, "relink against every placed element (overrides config)")
	cmd.Flags().StringVar(&opts.isolated, "isolated", "", "isolated element policy: settle, recheck (overrides config)")

	return cmd
}

func (c *CLI) runBuild(ctx context.Context, input string, opts *buildOpts) error {
	logger := loggerFromContext(ctx)

	graphOpts, err := c.buildGraphOptions(opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var spinner *Spinner
	if !c.verbose {
		spinner = newSpinner(ctx, os.Stderr, fmt.Sprintf("Building %s...", input))
		spinner.Start()
	}
	prog := newProgress(logger)

	result, err := runner.Build(ctx, pipeline.BuildOptions{
		Input:   input,
		Graph:   graphOpts,
		Replace: opts.replace,
		Rebuild: opts.rebuild,
		Refresh: opts.refresh,
	})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	prog.done("build finished", "input", input)

	c.out.success("Built hierarchy from %s", input)
	c.out.stats(result.Store, result.CacheInfo.BuildHit)
	c.printBuildDetails(result)

	if opts.output != "" {
		if err := phio.ExportJSON(result.Store, result.Phrases, opts.output); err != nil {
			return err
		}
		c.out.file(opts.output)
	}

	if err := result.Err(); err != nil {
		c.printFailures(result)
		return err
	}

	c.out.newline()
	if opts.output != "" {
		c.out.nextStep("Render it", fmt.Sprintf("%s render --from %s", appName, opts.output))
	} else {
		c.out.nextStep("List the roots", appName+" roots")
	}
	return nil
}

func (c *CLI) buildGraphOptions(opts *buildOpts) (graph.Options, error) {
	graphOpts, err := c.Config.BuildOptions()
	if err != nil {
		return graph.Options{}, err
	}
	if opts.exhaustive {
		graphOpts.ExhaustiveRelink = true
	}
	if opts.isolated != "" {
		policy, err := graph.ParseIsolatedPolicy(opts.isolated)
		if err != nil {
			return graph.Options{}, err
		}
		graphOpts.Isolated = policy
	}
	return graphOpts, nil
}

func (c *CLI) printBuildDetails(r *pipeline.Result) {
	st := r.Stats
	c.out.detail("%s read, %d new", plural(st.Items, "item", "items"), st.Loaded)
	if r.Build != nil {
		c.out.detail("%d attached, %d heads, %d absorbed, %d isolated in %s",
			r.Build.Attached, r.Build.Heads, r.Build.Absorbed, len(r.Build.Isolated), st.BuildTime.Round(time.Millisecond))
	}
}

func (c *CLI) printFailures(r *pipeline.Result) {
	ids := r.Build.FailedIDs()
	for i, id := range ids {
		if i == maxFailuresShown {
			c.out.detail("... and %d more", len(ids)-maxFailuresShown)
			break
		}
		c.out.warning("element %d: %v", id, r.Build.Failed[id])
	}
}
