package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/stellarlinkco/replypilot/internal/config"
)

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// Telegram sends draft reports to one operator chat.
type Telegram struct {
	token      string
	chatID     int64
	proxy      string
	bot        TelegramBot
	botFactory BotFactory
	logger     *zap.Logger
}

func NewTelegram(cfg config.TelegramConfig, logger *zap.Logger) (*Telegram, error) {
	return NewTelegramWithFactory(cfg, logger, defaultBotFactory)
}

// NewTelegramWithFactory creates a Telegram notifier with a custom bot factory (for testing)
func NewTelegramWithFactory(cfg config.TelegramConfig, logger *zap.Logger, factory BotFactory) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{
		token:      cfg.Token,
		chatID:     cfg.ChatID,
		proxy:      cfg.Proxy,
		botFactory: factory,
		logger:     logger.Named("telegram"),
	}, nil
}

// Init authorizes the bot, routing through Proxy when set.
func (t *Telegram) Init() error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	t.logger.Info("authorized", zap.String("bot", bot.GetSelf().UserName))
	return nil
}

func (t *Telegram) Notify(ctx context.Context, r Report) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, reportHTML(r))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		// Retry without HTML parse mode
		msg.ParseMode = ""
		msg.Text = Summary(r)
		if _, err2 := t.bot.Send(msg); err2 != nil {
			return fmt.Errorf("send telegram message: %w", err2)
		}
	}
	return nil
}

func reportHTML(r Report) string {
	lines := strings.Split(escapeHTML(Summary(r)), "\n")
	lines[0] = "<b>" + lines[0] + "</b>"
	for i, l := range lines[1:] {
		if head, rest, ok := strings.Cut(l, ": "); ok {
			lines[i+1] = "<i>" + head + ":</i> " + rest
		}
	}
	return strings.Join(lines, "\n")
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}
