// Package browser drives the chat web interface: it logs in, reads the
// visible thread and places drafts into the input field. It never sends.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

var (
	ErrNotStarted    = errors.New("browser not started")
	ErrLoginForm     = errors.New("login form not found")
	ErrInputNotFound = errors.New("message input not found")
)

const threadSelector = ".messages-container"

const readThreadJS = `() => {
	const cards = [...document.querySelectorAll('.messages-container .message-card')];
	return cards.map(card => {
		const ts = card.querySelector('.message-date');
		const text = card.querySelector('.text');
		return {
			text: text ? (text.innerText || '').trim() : '',
			isMine: card.classList.contains('message-current'),
			tsText: ts ? (ts.innerText || '').trim() : null,
		};
	});
}`

const fillInputJS = `(value) => {
	const ta = document.querySelector('#message-input');
	if (!ta) return false;
	ta.value = value;
	ta.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
}`

const loginJS = `(user, pass) => {
	const field = (name) => {
		const label = [...document.querySelectorAll('label')]
			.find(l => (l.innerText || '').trim().toLowerCase().startsWith(name));
		if (label && label.control) return label.control;
		return document.querySelector('input[name="' + name + '" i], input[aria-label="' + name + '" i]');
	};
	const set = (el, v) => {
		el.value = v;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	};
	const u = field('nickname') || field('username');
	const p = field('password') || document.querySelector('input[type="password"]');
	if (!u || !p) return false;
	set(u, user);
	set(p, pass);
	const button = [...document.querySelectorAll('button, input[type="submit"]')]
		.find(b => /log\s*in/i.test(b.innerText || b.value || ''));
	if (button) { button.click(); } else if (p.form) { p.form.submit(); }
	return true;
}`

type Options struct {
	LoginURL        string
	ChatURL         string
	Username        string
	Password        string
	Headless        bool
	ControlURL      string
	PageLoadTimeout time.Duration
}

func OptionsFromConfig(c config.ChatConfig) Options {
	return Options{
		LoginURL:        c.LoginURL,
		ChatURL:         c.ChatURL,
		Username:        c.Username,
		Password:        c.Password,
		Headless:        c.Headless,
		ControlURL:      c.ControlURL,
		PageLoadTimeout: time.Duration(c.PageLoadTimeoutMs) * time.Millisecond,
	}
}

// Chat is one browser tab showing the chat.
type Chat struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
}

func New(opts Options, logger *zap.Logger) *Chat {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = config.DefaultPageLoadTimeoutMs * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{opts: opts, logger: logger.Named("browser")}
}

// Start launches a browser, or connects to ControlURL when set, and opens a tab.
func (c *Chat) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	controlURL := c.opts.ControlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(c.opts.Headless).Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return fmt.Errorf("open page: %w", err)
	}
	c.browser, c.page = b, page
	c.logger.Info("browser started", zap.Bool("headless", c.opts.Headless), zap.Bool("attached", c.opts.ControlURL != ""))
	return nil
}

func (c *Chat) currentPage(ctx context.Context) (*rod.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil {
		return nil, ErrNotStarted
	}
	return c.page.Context(ctx), nil
}

// Login opens the login page and submits the credentials.
func (c *Chat) Login(ctx context.Context) error {
	page, err := c.currentPage(ctx)
	if err != nil {
		return err
	}
	page = page.Timeout(c.opts.PageLoadTimeout)
	if err := page.Navigate(c.opts.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait login page: %w", err)
	}
	res, err := page.Eval(loginJS, c.opts.Username, c.opts.Password)
	if err != nil {
		return fmt.Errorf("fill login form: %w", err)
	}
	if !res.Value.Bool() {
		return ErrLoginForm
	}
	c.logger.Info("login submitted", zap.String("url", c.opts.LoginURL))
	return nil
}

// WaitForChat blocks until a message thread is visible. When ChatURL is set
// it is opened first; otherwise the operator navigates manually.
func (c *Chat) WaitForChat(ctx context.Context) error {
	page, err := c.currentPage(ctx)
	if err != nil {
		return err
	}
	if c.opts.ChatURL != "" {
		if err := page.Timeout(c.opts.PageLoadTimeout).Navigate(c.opts.ChatURL); err != nil {
			return fmt.Errorf("open chat: %w", err)
		}
	}
	if _, err := page.Element(threadSelector); err != nil {
		return fmt.Errorf("wait for chat: %w", err)
	}
	c.logger.Info("chat visible")
	return nil
}

// Snapshot reads every visible message card, oldest first.
func (c *Chat) Snapshot(ctx context.Context) ([]thread.Record, error) {
	page, err := c.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	res, err := page.Timeout(c.opts.PageLoadTimeout).Eval(readThreadJS)
	if err != nil {
		return nil, fmt.Errorf("read thread: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("read thread: %w", err)
	}
	return decodeSnapshot(raw)
}

// FillDraft puts text into the message input without sending it.
func (c *Chat) FillDraft(ctx context.Context, text string) error {
	page, err := c.currentPage(ctx)
	if err != nil {
		return err
	}
	res, err := page.Timeout(c.opts.PageLoadTimeout).Eval(fillInputJS, text)
	if err != nil {
		return fmt.Errorf("fill draft: %w", err)
	}
	if !res.Value.Bool() {
		return ErrInputNotFound
	}
	return nil
}

func (c *Chat) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser, c.page = nil, nil
	return err
}

type card struct {
	Text   string  `json:"text"`
	IsMine bool    `json:"isMine"`
	TSText *string `json:"tsText"`
}

func decodeSnapshot(raw []byte) ([]thread.Record, error) {
	var cards []card
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, fmt.Errorf("decode thread: %w", err)
	}
	records := make([]thread.Record, 0, len(cards))
	for _, cd := range cards {
		r := thread.Record{Text: strings.TrimSpace(cd.Text), IsOwn: cd.IsMine}
		if cd.TSText != nil {
			r.RawTimestamp = strings.TrimSpace(*cd.TSText)
		}
		records = append(records, r)
	}
	return records, nil
}
