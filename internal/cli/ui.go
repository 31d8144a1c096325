package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/phrasetower/pkg/graph"
	phio "github.com/matzehuels/phrasetower/pkg/io"
	"github.com/matzehuels/phrasetower/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success, branches
	colorYellow = lipgloss.Color("220") // Amber - warnings, pending
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for element IDs and counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warnings and pending elements.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleKey      = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Printer
// =============================================================================

// printer writes the human-readable result of a command. Diagnostics go to
// the logger; everything a user might pipe or read back goes here.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) success(format string, args ...any) {
	p.println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func (p *printer) warning(format string, args ...any) {
	p.println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) info(format string, args ...any) {
	p.println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

func (p *printer) detail(format string, args ...any) {
	p.println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// file prints a path the command wrote to.
func (p *printer) file(path string) {
	p.println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func (p *printer) keyValue(key, value string) {
	p.println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

func (p *printer) nextStep(description, cmd string) {
	p.println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func (p *printer) newline() {
	fmt.Fprintln(p.w)
}

// =============================================================================
// Hierarchy Output
// =============================================================================

// stats prints the shape of a hierarchy on one line, e.g.
// "4 active · 5 edges · 1 duplicate · fresh".
func (p *printer) stats(s *phio.Store, cached bool) {
	_, active, dups, pending := s.Counts()
	parts := []string{
		plural(active, "active", "active"),
		plural(s.EdgeCount(), "edge", "edges"),
	}
	if dups > 0 {
		parts = append(parts, plural(dups, "duplicate", "duplicates"))
	}
	if pending > 0 {
		parts = append(parts, StyleWarning.Render(plural(pending, "pending", "pending")))
	}
	if cached {
		parts = append(parts, styleCached.Render("cached"))
	} else {
		parts = append(parts, styleComputed.Render("fresh"))
	}

	for i, part := range parts {
		parts[i] = StyleDim.Render(part)
	}
	p.println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// element prints one element as an indented list row: ID, label, child
// count and a pending marker.
func (p *printer) element(h *pipeline.Hierarchy, e *graph.Element[int64, string]) {
	line := fmt.Sprintf("  %s %s", StyleNumber.Render(fmt.Sprintf("#%-6d", e.ID())), StyleValue.Render(elementLabel(h, e)))
	if n := len(e.Children()); n > 0 {
		line += StyleDim.Render("  " + plural(n, "child", "children"))
	}
	if e.Pending() {
		line += " " + StyleWarning.Render("pending")
	}
	p.println(line)
}

func (p *printer) elements(h *pipeline.Hierarchy, ids []int64) {
	if len(ids) == 0 {
		p.detail("none")
		return
	}
	for _, id := range ids {
		if e, ok := h.Store.Get(id); ok {
			p.element(h, e)
		}
	}
}

// elementLabel returns the phrase of e, or its tokens when the phrase is
// unknown (repositories do not keep phrases).
func elementLabel(h *pipeline.Hierarchy, e *graph.Element[int64, string]) string {
	if l := h.Phrases[e.ID()]; l != "" {
		return l
	}
	return strings.Join(e.Tokens(), " ")
}

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
