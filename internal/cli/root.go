// Package cli implements stickerctl, a local command line front end that runs
// files through the same dispatcher as the bot.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maauso/stickerize/internal/config"
)

// NewRootCommand returns the stickerctl root command. Converted file paths
// are printed to out; logs go to logOut.
func NewRootCommand(out, logOut io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "stickerctl",
		Short:         "Convert images, clips and stickers from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(logOut)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	env := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
		return cfg, logger, nil
	}

	root.AddCommand(
		newConvertCommand(env),
		newCheckCommand(env),
	)
	return root
}

// envFunc loads configuration and builds the command logger.
type envFunc func() (*config.Config, *slog.Logger, error)
