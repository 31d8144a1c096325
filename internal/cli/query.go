package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/pipeline"
)

// =============================================================================
// roots
// =============================================================================

func (c *CLI) rootsCommand() *cobra.Command {
	var src source
	var all bool

	cmd := &cobra.Command{
		Use:   "roots",
		Short: "List the most general phrases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, h, err := c.open(cmd.Context(), &src)
			if err != nil {
				return err
			}
			defer runner.Close()

			b := graph.NewBuilder(h.Store, graph.Options{})
			roots := b.Roots(!all)
			c.out.info("%s in %s", plural(len(roots), "root", "roots"), src.describe(c))
			c.out.elements(h, roots)
			return nil
		},
	}

	src.register(cmd, false)
	cmd.Flags().BoolVar(&all, "all", false, "include elements that are still pending")
	return cmd
}

// =============================================================================
// show
// =============================================================================

func (c *CLI) showCommand() *cobra.Command {
	var src source
	var ancestors, descendants bool

	cmd := &cobra.Command{
		Use:               "show <id>",
		Short:             "Show one element with its neighbours",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeElementIDs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil || len(ids) != 1 {
				return errors.New(errors.ErrCodeInvalidInput, "show takes exactly one element id")
			}
			runner, h, err := c.open(cmd.Context(), &src)
			if err != nil {
				return err
			}
			defer runner.Close()
			return c.showElement(h, ids[0], ancestors, descendants)
		},
	}

	src.register(cmd, false)
	cmd.Flags().BoolVar(&ancestors, "ancestors", false, "list every ancestor")
	cmd.Flags().BoolVar(&descendants, "descendants", false, "list every descendant")
	return cmd
}

func (c *CLI) showElement(h *pipeline.Hierarchy, id int64, ancestors, descendants bool) error {
	b := graph.NewBuilder(h.Store, graph.Options{})
	e, ok := h.Store.Get(id)
	if !ok {
		return errors.New(errors.ErrCodeElementNotFound, "element %d not found", id)
	}

	out := c.out
	out.println(StyleTitle.Render(fmt.Sprintf("#%d", id)))
	if p := h.Phrases[id]; p != "" {
		out.keyValue("phrase", p)
	}
	out.keyValue("tokens", strings.Join(e.Tokens(), " "))
	out.keyValue("pending", strconv.FormatBool(e.Pending()))
	if of, ok := e.DuplicateOf(); ok {
		rep, _ := b.Resolve(of)
		out.keyValue("duplicate", fmt.Sprintf("of #%d", rep))
		return nil
	}
	out.keyValue("parents", formatIDs(e.Parents()))
	out.keyValue("children", formatIDs(e.Children()))
	if dups := e.Duplicates(); len(dups) > 0 {
		out.keyValue("duplicates", formatIDs(dups))
	}

	if ancestors {
		out.newline()
		out.info("Ancestors")
		out.elements(h, b.Ancestors(id))
	}
	if descendants {
		out.newline()
		out.info("Descendants")
		out.elements(h, b.Descendants(id))
	}
	return nil
}

// =============================================================================
// narrow
// =============================================================================

func (c *CLI) narrowCommand() *cobra.Command {
	var src source
	var keep, drop []string

	cmd := &cobra.Command{
		Use:   "narrow (--keep ids | --drop ids)",
		Short: "Retract edges by the element they point at",
		Long: `Narrow removes edges whose far end is outside the --keep set, or inside the
--drop set. Elements are never removed. Use it to clear references left by
elements that were deleted outside phrasetower.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(keep) == 0) == (len(drop) == 0) {
				return errors.New(errors.ErrCodeInvalidInput, "exactly one of --keep and --drop is required")
			}
			mode, raw := graph.NarrowKeep, keep
			if len(drop) > 0 {
				mode, raw = graph.NarrowDrop, drop
			}
			ids, err := parseIDs(raw)
			if err != nil {
				return err
			}
			return c.runNarrow(cmd.Context(), &src, ids, mode)
		},
	}

	src.register(cmd, true)
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "keep only edges to these element ids")
	cmd.Flags().StringSliceVar(&drop, "drop", nil, "drop edges to these element ids")
	return cmd
}

func (c *CLI) runNarrow(ctx context.Context, src *source, ids []int64, mode graph.NarrowMode) error {
	runner, h, err := c.open(ctx, src)
	if err != nil {
		return err
	}
	defer runner.Close()

	before := h.Store.EdgeCount()
	b := graph.NewBuilder(h.Store, graph.Options{})
	b.SetSink(graph.LogSink(loggerFromContext(ctx)))
	if !b.Narrow(ids, mode) {
		c.out.info("Nothing to narrow")
		return nil
	}

	dest, err := c.save(ctx, runner, src, h)
	if err != nil {
		return err
	}
	c.out.success("Retracted %s", plural(before-h.Store.EdgeCount(), "edge", "edges"))
	c.out.file(dest)
	return nil
}

// =============================================================================
// delete
// =============================================================================

func (c *CLI) deleteCommand() *cobra.Command {
	var src source

	cmd := &cobra.Command{
		Use:               "delete <id>...",
		Short:             "Delete elements and every edge pointing at them",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeElementIDs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.runDelete(cmd.Context(), &src, ids)
		},
	}

	src.register(cmd, true)
	return cmd
}

func (c *CLI) runDelete(ctx context.Context, src *source, ids []int64) error {
	runner, h, err := c.open(ctx, src)
	if err != nil {
		return err
	}
	defer runner.Close()

	var deleted []int64
	if src.from == "" {
		if deleted, err = runner.Delete(ctx, h, ids); err != nil {
			return err
		}
	} else {
		b := graph.NewBuilder(h.Store, graph.Options{})
		b.SetSink(graph.LogSink(loggerFromContext(ctx)))
		for _, id := range ids {
			if b.Delete(id) {
				deleted = append(deleted, id)
				delete(h.Phrases, id)
			}
		}
		if len(deleted) > 0 {
			if _, err := c.save(ctx, runner, src, h); err != nil {
				return err
			}
		}
	}

	if len(deleted) == 0 {
		c.out.warning("No matching elements")
		return nil
	}
	c.out.success("Deleted %s", plural(len(deleted), "element", "elements"))
	c.out.detail("%s", formatIDs(deleted))
	return nil
}
