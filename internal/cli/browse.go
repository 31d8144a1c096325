package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/errors"
)

// browseCommand creates the interactive browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var src source

	cmd := &cobra.Command{
		Use:   "browse [id]",
		Short: "Walk the hierarchy interactively",
		Long: `Browse opens a terminal view of the hierarchy. It starts at the roots, or
below the given element, and descends from general to specific phrases.
When it exits, the element under the cursor is printed.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completeElementIDs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			runner, h, err := c.open(cmd.Context(), &src)
			if err != nil {
				return err
			}
			defer runner.Close()

			var start *int64
			if len(ids) == 1 {
				if !h.Store.Has(ids[0]) {
					return errors.New(errors.ErrCodeElementNotFound, "element %d not found", ids[0])
				}
				start = &ids[0]
			}

			p := tea.NewProgram(NewBrowseModel(h, start), tea.WithContext(cmd.Context()))
			final, err := p.Run()
			if err != nil {
				return fmt.Errorf("browse: %w", err)
			}
			if m, ok := final.(BrowseModel); ok {
				if id, ok := m.Current(); ok {
					return c.showElement(h, id, false, false)
				}
			}
			return nil
		},
	}

	src.register(cmd, false)
	return cmd
}
