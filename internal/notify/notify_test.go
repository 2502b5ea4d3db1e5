package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap/zaptest"

	"github.com/stellarlinkco/replypilot/internal/config"
)

// mockTelegramBot implements TelegramBot interface for testing
type mockTelegramBot struct {
	sentMsgs []tgbotapi.MessageConfig
	sendErr  []error
	self     tgbotapi.User
}

func (m *mockTelegramBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sentMsgs = append(m.sentMsgs, c.(tgbotapi.MessageConfig))
	if len(m.sendErr) > 0 {
		err := m.sendErr[0]
		m.sendErr = m.sendErr[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	return tgbotapi.Message{MessageID: 1}, nil
}

func (m *mockTelegramBot) GetSelf() tgbotapi.User { return m.self }

func newTestTelegram(t *testing.T, bot *mockTelegramBot) *Telegram {
	t.Helper()
	var gotClient *http.Client
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		if token != "tok" {
			t.Errorf("token = %q, want tok", token)
		}
		gotClient = client
		return bot, nil
	}
	tg, err := NewTelegramWithFactory(config.TelegramConfig{Token: "tok", ChatID: 42}, zaptest.NewLogger(t), factory)
	if err != nil {
		t.Fatalf("NewTelegramWithFactory error: %v", err)
	}
	if err := tg.Init(); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if gotClient != http.DefaultClient {
		t.Errorf("client without proxy should be http.DefaultClient")
	}
	return tg
}

var sample = Report{
	Event:    "new_inbound",
	Intent:   "question",
	Provider: "gemini",
	Inbound:  "Magst du <b>Musik</b>?",
	Text:     "Ja, sehr & gerne.",
	Flags:    []string{"dash_removed", "used_du_form"},
	Written:  true,
}

func TestSummary(t *testing.T) {
	want := "Draft ready (new_inbound, question, gemini)\n" +
		"In: Magst du <b>Musik</b>?\n" +
		"Out: Ja, sehr & gerne.\n" +
		"Flags: dash_removed, used_du_form"
	if got := Summary(sample); got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	blocked := Summary(Report{Event: "follow_up", Blocked: true})
	if blocked != "Draft blocked (follow_up)" {
		t.Errorf("Summary(blocked) = %q", blocked)
	}
	if got := Summary(Report{Event: "new_inbound"}); !strings.HasPrefix(got, "Draft not written") {
		t.Errorf("Summary(unwritten) = %q", got)
	}
}

func TestSummary_TruncatesInbound(t *testing.T) {
	got := Summary(Report{Event: "new_inbound", Inbound: strings.Repeat("ä", 400)})
	if !strings.Contains(got, strings.Repeat("ä", 300)+"...") || strings.Contains(got, strings.Repeat("ä", 301)) {
		t.Errorf("inbound not truncated to 300 runes: %q", got)
	}
}

func TestTelegram_Notify(t *testing.T) {
	bot := &mockTelegramBot{self: tgbotapi.User{UserName: "pilotbot"}}
	tg := newTestTelegram(t, bot)

	if err := tg.Notify(context.Background(), sample); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if len(bot.sentMsgs) != 1 {
		t.Fatalf("sent = %d, want 1", len(bot.sentMsgs))
	}
	msg := bot.sentMsgs[0]
	if msg.ChatID != 42 {
		t.Errorf("ChatID = %d, want 42", msg.ChatID)
	}
	if msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("ParseMode = %q, want HTML", msg.ParseMode)
	}
	wantHTML := "<b>Draft ready (new_inbound, question, gemini)</b>\n" +
		"<i>In:</i> Magst du &lt;b&gt;Musik&lt;/b&gt;?\n" +
		"<i>Out:</i> Ja, sehr &amp; gerne.\n" +
		"<i>Flags:</i> dash_removed, used_du_form"
	if msg.Text != wantHTML {
		t.Errorf("Text = %q, want %q", msg.Text, wantHTML)
	}
}

func TestTelegram_Notify_FallsBackToPlain(t *testing.T) {
	bot := &mockTelegramBot{sendErr: []error{errors.New("can't parse entities"), nil}}
	tg := newTestTelegram(t, bot)

	if err := tg.Notify(context.Background(), sample); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if len(bot.sentMsgs) != 2 {
		t.Fatalf("sent = %d, want 2", len(bot.sentMsgs))
	}
	if bot.sentMsgs[1].ParseMode != "" || bot.sentMsgs[1].Text != Summary(sample) {
		t.Errorf("fallback = %+v", bot.sentMsgs[1])
	}
}

func TestTelegram_Notify_Errors(t *testing.T) {
	bot := &mockTelegramBot{sendErr: []error{errors.New("a"), errors.New("b")}}
	tg := newTestTelegram(t, bot)
	if err := tg.Notify(context.Background(), sample); err == nil {
		t.Error("expected error when both sends fail")
	}

	uninit, _ := NewTelegramWithFactory(config.TelegramConfig{Token: "tok", ChatID: 1}, nil, nil)
	if err := uninit.Notify(context.Background(), sample); err == nil {
		t.Error("expected error for uninitialized bot")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tg.Notify(ctx, sample); !errors.Is(err, context.Canceled) {
		t.Errorf("Notify(cancelled) = %v, want context.Canceled", err)
	}
}

func TestNewTelegram_Validation(t *testing.T) {
	if _, err := NewTelegram(config.TelegramConfig{ChatID: 1}, nil); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewTelegram(config.TelegramConfig{Token: "x"}, nil); err == nil {
		t.Error("expected error for missing chat id")
	}
}

func TestTelegram_InitWithProxy(t *testing.T) {
	var gotClient *http.Client
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		gotClient = client
		return &mockTelegramBot{}, nil
	}
	tg, _ := NewTelegramWithFactory(config.TelegramConfig{Token: "tok", ChatID: 1, Proxy: "http://proxy.local:8080"}, nil, factory)
	if err := tg.Init(); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if gotClient == http.DefaultClient {
		t.Error("proxy should use a dedicated client")
	}

	tg, _ = NewTelegramWithFactory(config.TelegramConfig{Token: "tok", ChatID: 1, Proxy: "://bad"}, nil, factory)
	if err := tg.Init(); err == nil {
		t.Error("expected error for bad proxy url")
	}

	failing := func(string, string, *http.Client) (TelegramBot, error) { return nil, errors.New("unauthorized") }
	tg, _ = NewTelegramWithFactory(config.TelegramConfig{Token: "tok", ChatID: 1}, nil, failing)
	if err := tg.Init(); err == nil {
		t.Error("expected error from factory")
	}
}

func TestFromConfig_DisabledIsNop(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{}, nil)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	if _, ok := n.(Nop); !ok {
		t.Errorf("FromConfig(disabled) = %T, want Nop", n)
	}
	if err := n.Notify(context.Background(), sample); err != nil {
		t.Errorf("Nop.Notify error: %v", err)
	}
}
