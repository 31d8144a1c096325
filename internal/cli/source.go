package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/phrasetower/pkg/errors"
	phio "github.com/matzehuels/phrasetower/pkg/io"
	"github.com/matzehuels/phrasetower/pkg/pipeline"
	"github.com/matzehuels/phrasetower/pkg/storage"
)

// source describes where a command reads its hierarchy from and where
// changes are written back.
type source struct {
	from   string // exported hierarchy JSON; empty means the repository
	output string // write target for --from; defaults to from
}

func (s *source) register(cmd *cobra.Command, writes bool) {
	cmd.Flags().StringVar(&s.from, "from", "", "read the hierarchy from an exported JSON file instead of storage")
	if writes {
		cmd.Flags().StringVarP(&s.output, "output", "o", "", "write the changed hierarchy here (default: the --from file)")
	}
}

// describe returns a short label for status lines.
func (s *source) describe(c *CLI) string {
	if s.from != "" {
		return s.from
	}
	if c.Config.Storage.Path != "" {
		return c.Config.Storage.Driver + ":" + c.Config.Storage.Path
	}
	return c.Config.Storage.Driver
}

// open loads the hierarchy. The returned runner must be closed.
func (c *CLI) open(ctx context.Context, src *source) (*pipeline.Runner, *pipeline.Hierarchy, error) {
	if src.from != "" {
		if err := errors.ValidatePath(src.from); err != nil {
			return nil, nil, err
		}
	}
	r, err := c.newRunner(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	h, err := r.Load(ctx, src.from)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	loggerFromContext(ctx).Debug("loaded hierarchy", "source", src.describe(c), "elements", h.Store.Len())
	return r, h, nil
}

// save writes h back to where it was loaded from.
func (c *CLI) save(ctx context.Context, r *pipeline.Runner, src *source, h *pipeline.Hierarchy) (string, error) {
	if src.from == "" {
		return src.describe(c), storage.Save(ctx, r.Repo, h.Store)
	}
	path := src.output
	if path == "" {
		path = src.from
	}
	if err := phio.ExportJSON(h.Store, h.Phrases, path); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	return path, nil
}

// basePath derives the base output path from the output flag and the
// input file. Known format extensions are stripped from output.
func basePath(output, input string) string {
	if output == "" {
		if input == "" {
			return appName
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// openOutput creates path, making parent directories as needed. An empty
// path or "-" writes to the command's output stream.
func (c *CLI) openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{c.out.w}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
