package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/maauso/stickerize/internal/bootstrap"
	"github.com/maauso/stickerize/internal/convert"
	"github.com/maauso/stickerize/internal/storage"
)

// ErrNotAFile is returned when the input path is a directory.
var ErrNotAFile = errors.New("input is not a regular file")

type convertOptions struct {
	op            string
	stickerFormat string
	outDir        string
	base          string
	caption       string
}

func newConvertCommand(env envFunc) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a file and write the outputs to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			op, err := convert.ParseOperation(opts.op, opts.stickerFormat)
			if err != nil {
				return err
			}

			runner := bootstrap.NewRunner(cfg, logger)
			dispatcher, err := bootstrap.NewDispatcher(cfg, runner, logger)
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), dispatcher, cmd.OutOrStdout(), args[0], op, opts)
		},
	}

	cmd.Flags().StringVar(&opts.op, "op", string(convert.KindImage), "operation: image, video or sticker")
	cmd.Flags().StringVar(&opts.stickerFormat, "sticker-format", "", "sticker format: static, animated or video")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.base, "base", "", "output base name (default: input file name)")
	cmd.Flags().StringVar(&opts.caption, "caption", "", "caption printed next to each output")
	return cmd
}

func runConvert(ctx context.Context, d *convert.Dispatcher, out io.Writer, input string, op convert.Operation, opts convertOptions) error {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", input, ErrNotAFile)
	}

	src, err := storage.NewLocalSource(filepath.Dir(input))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	base := opts.base
	if base == "" {
		base = info.Name()
	}

	dst := &dirDeliverer{dir: opts.outDir, out: out}
	err = d.Handle(ctx, src, dst, convert.Request{
		FileID:       info.Name(),
		DeclaredSize: info.Size(),
		Op:           op,
		BaseName:     base,
		Caption:      opts.caption,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", convert.UserMessage(err), err)
	}
	return nil
}

// dirDeliverer writes each delivery into dir and prints its path.
type dirDeliverer struct {
	dir string
	out io.Writer

	mu sync.Mutex
}

func (d *dirDeliverer) Deliver(_ context.Context, del convert.Delivery) error {
	path := filepath.Join(d.dir, del.File.Name)
	if err := os.WriteFile(path, del.File.Data, 0600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	line := path
	if del.Caption != "" {
		line += "\t" + strings.ReplaceAll(del.Caption, "\n", " ")
	}
	_, err := fmt.Fprintln(d.out, line)
	return err
}
