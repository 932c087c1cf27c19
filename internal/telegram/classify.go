package telegram

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/maauso/stickerize/internal/convert"
	"github.com/maauso/stickerize/internal/media"
)

// Classify picks the input file and operation for msg. When msg carries no
// convertible media it returns ok=false and the text to reply with.
func Classify(msg *telego.Message, logger *slog.Logger) (req convert.Request, reply string, ok bool) {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case msg.Document != nil:
		doc := msg.Document
		logger.Info("got document",
			slog.String("file_name", doc.FileName),
			slog.Int64("bytes", int64(doc.FileSize)),
		)
		op := convert.ImageOp()
		if strings.EqualFold(filepath.Ext(doc.FileName), ".gif") {
			op = convert.VideoOp()
		}
		return convert.Request{
			FileID:       doc.FileID,
			DeclaredSize: int64(doc.FileSize),
			Op:           op,
			BaseName:     doc.FileName,
		}, "", true

	case len(msg.Photo) > 0:
		ph := pickPhoto(msg.Photo)
		logger.Info("got photo",
			slog.Int("width", ph.Width),
			slog.Int("height", ph.Height),
			slog.Int64("bytes", int64(ph.FileSize)),
		)
		return convert.Request{
			FileID:       ph.FileID,
			DeclaredSize: int64(ph.FileSize),
			Op:           convert.ImageOp(),
		}, "", true

	case msg.Animation != nil:
		ani := msg.Animation
		logger.Info("got animation",
			slog.String("file_name", ani.FileName),
			slog.Int("width", ani.Width),
			slog.Int("height", ani.Height),
			slog.Int("duration", ani.Duration),
			slog.Int64("bytes", int64(ani.FileSize)),
		)
		return convert.Request{
			FileID:       ani.FileID,
			DeclaredSize: int64(ani.FileSize),
			Op:           convert.VideoOp(),
			BaseName:     ani.FileName,
		}, "", true

	case msg.Sticker != nil:
		st := msg.Sticker
		format := stickerFormat(st)
		logger.Info("got sticker",
			slog.String("format", string(format)),
			slog.String("set_name", st.SetName),
			slog.String("emoji", st.Emoji),
			slog.Int("width", st.Width),
			slog.Int("height", st.Height),
			slog.Int64("bytes", int64(st.FileSize)),
		)
		return convert.Request{
			FileID:       st.FileID,
			DeclaredSize: int64(st.FileSize),
			Op:           convert.StickerOp(format),
			BaseName:     st.SetName,
			Caption:      st.Emoji,
		}, "", true

	case isCommand(msg.Text, "/start"), isCommand(msg.Text, "/help"):
		return convert.Request{}, convert.MsgHelp, false

	default:
		logger.Info("unsupported message", slog.String("text", msg.Text))
		return convert.Request{}, convert.MsgNudge, false
	}
}

// pickPhoto returns the smallest size that reaches the sticker size on either
// edge, or the largest available.
func pickPhoto(sizes []telego.PhotoSize) telego.PhotoSize {
	for _, ph := range sizes {
		if ph.Width >= media.StickerSize || ph.Height >= media.StickerSize {
			return ph
		}
	}
	return sizes[len(sizes)-1]
}

func stickerFormat(st *telego.Sticker) convert.StickerFormat {
	switch {
	case st.IsAnimated:
		return convert.StickerAnimated
	case st.IsVideo:
		return convert.StickerVideo
	default:
		return convert.StickerStatic
	}
}

// isCommand matches "/cmd" and "/cmd@botname", ignoring arguments.
func isCommand(text, cmd string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return name == cmd
}
