package media

import (
	"context"
	"fmt"
	"log/slog"
)

// Check is a command probed at startup to verify a runtime dependency.
type Check struct {
	Name string
	Args []string
}

// DefaultChecks returns the probes for every external tool the converters
// rely on, including those only used inside the lottie script.
func DefaultChecks(ffmpegPath, lottiePath string) []Check {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if lottiePath == "" {
		lottiePath = "lottie_to_gif.sh"
	}
	return []Check{
		{Name: ffmpegPath, Args: []string{"-version"}},
		{Name: lottiePath, Args: []string{"-v"}},
		{Name: "gifski", Args: []string{"-V"}},
		{Name: "gunzip", Args: []string{"--version"}},
		{Name: "lottie_to_png", Args: []string{"-v"}},
	}
}

// CheckCommands runs each probe once. A probe that cannot be started is fatal;
// a probe that starts but exits non-zero is only logged.
func CheckCommands(ctx context.Context, runner Runner, checks []Check, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, c := range checks {
		res, err := runner.Run(ctx, c.Name, c.Args, nil)
		if err != nil {
			logger.Error("startup check failed",
				slog.String("command", c.Name),
				slog.Any("error", err),
			)
			return fmt.Errorf("check %s: %w", c.Name, err)
		}
		if !res.Success() {
			logger.Warn("startup check exited non-zero",
				slog.String("command", c.Name),
				slog.Int("exit_code", res.ExitCode),
			)
			continue
		}
		logger.Debug("startup check ok", slog.String("command", c.Name))
	}
	return nil
}
