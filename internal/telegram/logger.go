package telegram

import (
	"fmt"
	"log/slog"
	"strings"
)

// slogBotLogger adapts slog.Logger to telego.Logger so library logs go through
// slog. The bot token is masked since request URLs embed it.
type slogBotLogger struct {
	log    *slog.Logger
	redact *strings.Replacer
}

func newSlogBotLogger(log *slog.Logger, token string) *slogBotLogger {
	pairs := []string{}
	if token != "" {
		pairs = append(pairs, token, "BOT_TOKEN")
	}
	return &slogBotLogger{log: log, redact: strings.NewReplacer(pairs...)}
}

func (s *slogBotLogger) Debugf(format string, args ...any) {
	s.log.Debug(s.redact.Replace(fmt.Sprintf(format, args...)))
}

func (s *slogBotLogger) Errorf(format string, args ...any) {
	s.log.Error(s.redact.Replace(fmt.Sprintf(format, args...)))
}
