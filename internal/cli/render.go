package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/pipeline"
	"github.com/matzehuels/phrasetower/pkg/render/nodelink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string   // output file (single format) or base path
	formats    []string // dot, svg, png, pdf, json
	leftRight  bool     // lay out general → specific from left to right
	detailed   bool     // add IDs and token counts to labels
	duplicates bool     // draw absorbed duplicates
	maxNodes   int      // keep only the most general elements
	include    []string // draw only these element ids
	noCache    bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var src source
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the hierarchy as a node-link diagram",
		Long: `Render draws the hierarchy with Graphviz: general phrases at the top, more
specific ones below. Roots are outlined, pending elements dashed.

With one format, --output names the file. With several, --output is a base
path and the format is appended as extension.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), &src, &opts)
		},
	}

	src.register(cmd, false)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png, pdf, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.leftRight, "left-right", false, "lay out from left to right instead of top-down")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show element ids and token counts")
	cmd.Flags().BoolVar(&opts.duplicates, "duplicates", false, "draw absorbed duplicates next to their representative")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 0, "draw at most this many elements, most general first (0 = all)")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "draw only these element ids")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, src *source, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	include, err := parseIDs(opts.include)
	if err != nil {
		return err
	}

	runner, h, err := c.open(ctx, src)
	if err != nil {
		return err
	}
	defer runner.Close()
	if !opts.noCache {
		runner.Cache = c.newCache(false)
	}

	direction := nodelink.DirectionTopDown
	if opts.leftRight {
		direction = nodelink.DirectionLeftRight
	}

	var spinner *Spinner
	if !c.verbose {
		spinner = newSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %s...", strings.Join(opts.formats, ", ")))
		spinner.Start()
	}
	prog := newProgress(logger)
	artifacts, cached, err := runner.Render(ctx, h, pipeline.RenderOptions{
		Formats:    opts.formats,
		Direction:  direction,
		Detailed:   opts.detailed,
		Duplicates: opts.duplicates,
		MaxNodes:   opts.maxNodes,
		Include:    include,
	})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	prog.done("render finished", "elements", h.Store.Len(), "cached", cached)

	paths := outputPaths(opts.output, src.from, opts.formats)
	for _, format := range opts.formats {
		if err := c.writeArtifact(paths[format], artifacts[format]); err != nil {
			return err
		}
	}

	if paths[opts.formats[0]] == "-" {
		return nil
	}
	c.out.success("Rendered %s", src.describe(c))
	c.out.stats(h.Store, cached)
	for _, format := range opts.formats {
		c.out.file(paths[format])
	}
	return nil
}

// outputPaths maps each format to a file. A single format with an explicit
// output uses it as is, "-" meaning stdout; otherwise the format is appended
// to the base path.
func outputPaths(output, input string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range slices.Compact(slices.Clone(formats)) {
		paths[f] = base + "." + f
	}
	return paths
}

func (c *CLI) writeArtifact(path string, data []byte) error {
	out, err := c.openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
