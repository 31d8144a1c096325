package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/cache"
	"github.com/matzehuels/phrasetower/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the build and render cache",
	}

	cmd.AddCommand(c.cacheInfoCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePruneCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// openFileCache opens the configured cache directory. It returns nil when
// the directory does not exist yet.
func (c *CLI) openFileCache() (*cache.FileCache, string, error) {
	dir, err := c.Config.CachePath()
	if err != nil {
		return nil, "", fmt.Errorf("get cache dir: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, dir, nil
	}
	fc, err := cache.NewFileCache(dir)
	return fc, dir, err
}

func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show how many builds and renders are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, dir, err := c.openFileCache()
			if err != nil {
				return err
			}
			if fc == nil {
				c.out.info("Cache is empty")
				return nil
			}
			usage, err := fc.Usage()
			if err != nil {
				return err
			}
			if len(usage) == 0 {
				c.out.info("Cache is empty")
			}
			for _, u := range usage {
				c.out.keyValue(u.Kind, fmt.Sprintf("%s, %s", plural(u.Entries, "entry", "entries"), formatBytes(u.Bytes)))
			}
			c.out.detail("Directory: %s", dir)
			return nil
		},
	}
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "clear [build|render]...",
		Short:     "Remove cached builds and renders",
		Long:      `Clear removes every cache entry, or only those of the kinds given.`,
		ValidArgs: []string{cache.KindBuild, cache.KindRender},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, dir, err := c.openFileCache()
			if err != nil {
				return err
			}
			if fc == nil {
				c.out.info("Cache is empty")
				return nil
			}
			count, err := fc.Clear(args...)
			if err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "clear cache")
			}
			c.out.success("Cleared %d cached entries", count)
			c.out.detail("Directory: %s", dir)
			return nil
		},
	}
}

func (c *CLI) cachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, _, err := c.openFileCache()
			if err != nil || fc == nil {
				return err
			}
			count, err := fc.Prune()
			if err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "prune cache")
			}
			c.out.success("Pruned %s", plural(count, "expired entry", "expired entries"))
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.Config.CachePath()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
