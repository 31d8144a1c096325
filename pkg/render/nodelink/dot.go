package nodelink

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/render"
)

// Layout directions accepted by [Options.Direction].
const (
	DirectionTopDown   = "TB"
	DirectionLeftRight = "LR"
)

// Options configures node-link diagram rendering.
type Options[K cmp.Ordered] struct {
	// Direction is the Graphviz rankdir, "TB" (default) or "LR".
	Direction string

	// Phrases supplies node labels. Elements without a phrase are labelled
	// with their tokens.
	Phrases map[K]string

	// Detailed adds the element ID and token count to each label.
	Detailed bool

	// Duplicates draws absorbed elements as grey notes tied to their
	// representative by a dotted line.
	Duplicates bool

	// Include restricts the diagram to these elements when non-empty.
	Include []K

	// MaxNodes caps the number of active elements drawn, keeping the most
	// general ones. Zero means no limit.
	MaxNodes int
}

// ToDOT converts a hierarchy to Graphviz DOT format. Every parent→child edge
// between drawn elements becomes an arrow from the general phrase to the
// specific one. Roots are drawn bold and pending elements dashed.
//
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
func ToDOT[K cmp.Ordered, T cmp.Ordered](s *graph.Store[K, T], opts Options[K]) string {
	dir := opts.Direction
	if dir == "" {
		dir = DirectionTopDown
	}

	nodes := selectNodes(s, opts)
	drawn := make(map[K]bool, len(nodes))
	for _, e := range nodes {
		drawn[e.ID()] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", dir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, e := range nodes {
		attrs := fmtAttrs(e, fmtLabel(e, opts))
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(e.ID()), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range nodes {
		if e.IsDuplicate() {
			of, _ := e.DuplicateOf()
			if drawn[of] {
				fmt.Fprintf(&buf, "  %q -> %q [style=dotted, arrowhead=none];\n", nodeID(of), nodeID(e.ID()))
			}
			continue
		}
		for _, child := range e.Children() {
			if drawn[child] {
				fmt.Fprintf(&buf, "  %q -> %q;\n", nodeID(e.ID()), nodeID(child))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// selectNodes returns the elements to draw: active ones ordered from
// general to specific, then absorbed ones if requested.
func selectNodes[K cmp.Ordered, T cmp.Ordered](s *graph.Store[K, T], opts Options[K]) []*graph.Element[K, T] {
	var include map[K]bool
	if len(opts.Include) > 0 {
		include = make(map[K]bool, len(opts.Include))
		for _, id := range opts.Include {
			include[id] = true
		}
	}

	var active, dups []*graph.Element[K, T]
	for _, e := range s.Elements() {
		if include != nil && !include[e.ID()] {
			continue
		}
		if e.IsDuplicate() {
			dups = append(dups, e)
		} else {
			active = append(active, e)
		}
	}

	slices.SortStableFunc(active, func(a, b *graph.Element[K, T]) int {
		return cmp.Or(cmp.Compare(a.Len(), b.Len()), cmp.Compare(a.ID(), b.ID()))
	})
	if opts.MaxNodes > 0 && len(active) > opts.MaxNodes {
		active = active[:opts.MaxNodes]
	}
	if !opts.Duplicates {
		return active
	}
	return append(active, dups...)
}

func nodeID[K cmp.Ordered](id K) string {
	return fmt.Sprint(id)
}

func fmtLabel[K cmp.Ordered, T cmp.Ordered](e *graph.Element[K, T], opts Options[K]) string {
	label, ok := opts.Phrases[e.ID()]
	if !ok || label == "" {
		parts := make([]string, e.Len())
		for i, t := range e.Tokens() {
			parts[i] = fmt.Sprint(t)
		}
		label = strings.Join(parts, " ")
	}
	if !opts.Detailed {
		return label
	}
	return fmt.Sprintf("%s\n#%v · %d tokens", label, e.ID(), e.Len())
}

func fmtAttrs[K cmp.Ordered, T cmp.Ordered](e *graph.Element[K, T], label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case e.IsDuplicate():
		attrs = append(attrs, "shape=note", "style=filled", "fillcolor=lightgrey", "fontcolor=dimgrey")
	case e.Pending():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	case !e.HasParents():
		attrs = append(attrs, "penwidth=3")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF].
func RenderSVG(dot string) ([]byte, error) {
	data, err := renderDOT(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderDOT(dot, graphviz.PNG)
}

func renderDOT(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}
