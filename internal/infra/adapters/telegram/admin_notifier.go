package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"course-enrollment/internal/config"
	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/infra/logging"
)

var _ adapter.Notifier = (*AdminNotifier)(nil)

// Telegram rejects longer message texts.
const maxMessageRunes = 4096

// AdminNotifier posts operator alerts to a single admin chat.
type AdminNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

type Option func(*options)

type options struct {
	endpoint string
	client   *http.Client
}

// WithAPIEndpoint overrides the Bot API URL template (see tgbotapi.APIEndpoint).
func WithAPIEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

func NewAdminNotifier(cfg config.TelegramConfig, logger *zerolog.Logger, opts ...Option) (*AdminNotifier, error) {
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	if cfg.AdminChatID == 0 {
		return nil, errors.New("telegram admin chat id is not set")
	}
	o := &options{endpoint: tgbotapi.APIEndpoint, client: &http.Client{}}
	for _, fn := range opts {
		fn(o)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.client)
	if err != nil {
		return nil, err
	}
	return &AdminNotifier{bot: bot, chatID: cfg.AdminChatID, log: logging.OrNop(logger)}, nil
}

func (n *AdminNotifier) Notify(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(n.chatID, truncate(text, maxMessageRunes))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return err
	}
	n.log.Debug().Int64("chat_id", n.chatID).Msg("admin notification sent")
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
