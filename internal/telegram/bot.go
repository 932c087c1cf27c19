// Package telegram is the Telegram front end: it long-polls for messages,
// classifies each one and runs it through the conversion dispatcher, replying
// with the outputs or a short text.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/maauso/stickerize/internal/convert"
)

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("telegram: bot token is required")

// Handler runs one classified request.
type Handler interface {
	Handle(ctx context.Context, src convert.Source, dst convert.Deliverer, req convert.Request) error
}

// api is the Bot API surface used per message.
type api interface {
	fileAPI
	messageAPI
}

// Bot receives updates and handles each message in its own goroutine.
type Bot struct {
	tg      *telego.Bot
	api     api
	source  *Source
	handler Handler
	logger  *slog.Logger

	wg sync.WaitGroup
}

// New creates a Bot for token. Library logs are routed through logger.
func New(token string, handler Handler, client *http.Client, logger *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "telegram"))

	tg, err := telego.NewBot(token, telego.WithLogger(newSlogBotLogger(logger, token)))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b := newBot(tg, handler, client, logger)
	b.tg = tg
	return b, nil
}

func newBot(a api, handler Handler, client *http.Client, logger *slog.Logger) *Bot {
	return &Bot{
		api:     a,
		source:  NewSource(a, client, logger),
		handler: handler,
		logger:  logger,
	}
}

// Run long-polls until ctx is cancelled, then waits for in-flight messages.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get me: %w", err)
	}
	b.logger.Info("bot started", slog.String("username", me.Username))

	updates, err := b.tg.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	for update := range updates {
		if update.Message == nil {
			continue
		}
		msg := *update.Message
		b.wg.Go(func() {
			b.handleMessage(ctx, &msg)
		})
	}

	b.logger.Info("updates channel closed, waiting for in-flight messages")
	b.wg.Wait()
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *telego.Message) {
	logger := b.logger.With(
		slog.Int64("chat_id", msg.Chat.ID),
		slog.Int("message_id", msg.MessageID),
	)
	logSender(logger, msg)

	rep := NewReplier(b.api, msg.Chat.ID, msg.MessageID, logger)

	req, text, ok := Classify(msg, logger)
	if ok {
		if err := b.handler.Handle(ctx, b.source, rep, req); err != nil {
			text = convert.UserMessage(err)
		}
	}

	if text != "" {
		if err := rep.Reply(ctx, text); err != nil {
			logger.Error("failed to reply", slog.String("text", text), slog.Any("error", err))
		}
	}

	logger.Debug("responded", slog.Any("message_ids", rep.Sent()))
}

func logSender(logger *slog.Logger, msg *telego.Message) {
	var userID int64
	if u := msg.From; u != nil {
		userID = u.ID
		logger.Info("message from",
			slog.String("first_name", u.FirstName),
			slog.String("last_name", u.LastName),
			slog.String("username", u.Username),
			slog.Int64("user_id", u.ID),
		)
	} else {
		logger.Info("message from unknown user")
	}

	if msg.Chat.ID != userID {
		logger.Info("message in chat",
			slog.String("title", msg.Chat.Title),
			slog.String("first_name", msg.Chat.FirstName),
			slog.String("last_name", msg.Chat.LastName),
			slog.String("username", msg.Chat.Username),
		)
	}
}
