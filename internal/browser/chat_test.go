package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

func TestDecodeSnapshot(t *testing.T) {
	raw := []byte(`[
		{"text":"  Hallo du  ","isMine":false,"tsText":"10:00 22/8/2025"},
		{"text":"Hey!","isMine":true,"tsText":null},
		{"text":"","isMine":false,"tsText":" 10:07 22/8/2025 "}
	]`)

	got, err := decodeSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, []thread.Record{
		{Text: "Hallo du", RawTimestamp: "10:00 22/8/2025"},
		{Text: "Hey!", IsOwn: true},
		{Text: "", RawTimestamp: "10:07 22/8/2025"},
	}, got)
}

func TestDecodeSnapshot_EmptyAndInvalid(t *testing.T) {
	got, err := decodeSnapshot([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = decodeSnapshot([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = decodeSnapshot([]byte(`{"text":"x"}`))
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Chat.Username = "mod"
	cfg.Chat.Headless = true

	opts := OptionsFromConfig(cfg.Chat)
	assert.Equal(t, config.DefaultLoginURL, opts.LoginURL)
	assert.Equal(t, "mod", opts.Username)
	assert.True(t, opts.Headless)
	assert.Equal(t, 20*time.Second, opts.PageLoadTimeout)

	c := New(Options{}, nil)
	assert.Equal(t, time.Duration(config.DefaultPageLoadTimeoutMs)*time.Millisecond, c.opts.PageLoadTimeout)
}

func TestChat_NotStarted(t *testing.T) {
	c := New(Options{}, nil)
	ctx := context.Background()

	_, err := c.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, c.FillDraft(ctx, "hi"), ErrNotStarted)
	assert.ErrorIs(t, c.Login(ctx), ErrNotStarted)
	assert.ErrorIs(t, c.WaitForChat(ctx), ErrNotStarted)
	assert.NoError(t, c.Close())
}

func TestChat_StartCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(Options{}, nil).Start(ctx), context.Canceled)
}
