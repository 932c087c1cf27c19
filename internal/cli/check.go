package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maauso/stickerize/internal/bootstrap"
	"github.com/maauso/stickerize/internal/media"
)

func newCheckCommand(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the external conversion tools can be started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			runner := bootstrap.NewRunner(cfg, logger)
			checks := media.DefaultChecks(cfg.FFmpegPath, cfg.LottieToGIFPath)
			if err := media.CheckCommands(cmd.Context(), runner, checks, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tools found\n", len(checks))
			return nil
		},
	}
}
