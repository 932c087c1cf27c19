package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/maauso/stickerize/internal/convert"
)

// messageAPI is the part of the Bot API used to answer a message.
type messageAPI interface {
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Compile-time check that Replier implements convert.Deliverer.
var _ convert.Deliverer = (*Replier)(nil)

// Replier answers one inbound message and records the ids of what it sent.
// It is safe for concurrent use.
type Replier struct {
	api     messageAPI
	chatID  int64
	replyTo int
	logger  *slog.Logger

	mu   sync.Mutex
	sent []int
}

// NewReplier creates a Replier answering message replyTo in chatID.
func NewReplier(api messageAPI, chatID int64, replyTo int, logger *slog.Logger) *Replier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replier{api: api, chatID: chatID, replyTo: replyTo, logger: logger}
}

// Deliver sends d as a document replying to the source message.
func (r *Replier) Deliver(ctx context.Context, d convert.Delivery) error {
	params := &telego.SendDocumentParams{
		ChatID:   tu.ID(r.chatID),
		Document: tu.File(tu.NameReader(d.File.Reader(), d.File.Name)),
		Caption:  d.Caption,
		ReplyParameters: &telego.ReplyParameters{
			MessageID:                r.replyTo,
			AllowSendingWithoutReply: true,
		},
		DisableContentTypeDetection: d.Raw,
	}

	msg, err := r.api.SendDocument(ctx, params)
	if err != nil {
		r.logger.Error("send document failed",
			slog.String("name", d.File.Name),
			slog.Any("error", err),
		)
		return fmt.Errorf("send document: %w", err)
	}
	r.record(msg.MessageID)
	return nil
}

// Reply sends a short text reply.
func (r *Replier) Reply(ctx context.Context, text string) error {
	msg, err := r.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          tu.ID(r.chatID),
		Text:            text,
		ReplyParameters: &telego.ReplyParameters{MessageID: r.replyTo},
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	r.record(msg.MessageID)
	return nil
}

// Sent returns the ids of messages sent so far.
func (r *Replier) Sent() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sent)
}

func (r *Replier) record(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, id)
}
