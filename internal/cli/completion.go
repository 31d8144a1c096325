package cli

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for phrasetower.

To load completions:

Bash:
  $ source <(phrasetower completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ phrasetower completion bash > /etc/bash_completion.d/phrasetower
  # macOS:
  $ phrasetower completion bash > $(brew --prefix)/etc/bash_completion.d/phrasetower

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ phrasetower completion zsh > "${fpath[1]}/_phrasetower"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ phrasetower completion fish | source

  # To load completions for each session, execute once:
  $ phrasetower completion fish > ~/.config/fish/completions/phrasetower.fish

PowerShell:
  PS> phrasetower completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> phrasetower completion powershell > phrasetower.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeElementIDs completes element ID arguments from the hierarchy the
// command would read, honouring --from and --config. Each candidate is
// described by its phrase. limit caps the number of ID arguments; zero means
// no limit.
func (c *CLI) completeElementIDs(limit int) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if limit > 0 && len(args) >= limit {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		// Completion bypasses PersistentPreRunE, so the config is loaded here.
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		c.Config = cfg

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		from, _ := cmd.Flags().GetString("from")
		runner, h, err := c.open(ctx, &source{from: from})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer runner.Close()

		var out []cobra.Completion
		for _, e := range h.Store.Elements() {
			id := strconv.FormatInt(e.ID(), 10)
			if strings.HasPrefix(id, toComplete) && !slices.Contains(args, id) {
				out = append(out, cobra.CompletionWithDesc(id, elementLabel(h, e)))
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
