package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelegram(url string) *Telegram {
	tg := NewTelegram("token", "42")
	tg.BaseURL = url
	tg.Backoff = time.Millisecond
	return tg
}

func TestTelegramSendsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestTelegram(srv.URL).SendText(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestTelegramRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestTelegram(srv.URL).SendText(context.Background(), "x"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTelegramReportsDescription(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := newTestTelegram(srv.URL).SendText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, int32(telegramAttempts), calls.Load())
}

func TestTelegramRequiresCredentials(t *testing.T) {
	assert.Error(t, NewTelegram("", "1").SendText(context.Background(), "x"))
}

func TestRenderMarkdown(t *testing.T) {
	msg := Message{
		Title: "btc: none_to_buy",
		Sections: []Section{
			{Title: "position", Lines: []string{"mode buy", "  ", "stop 883.8"}},
			{Title: "empty", Lines: []string{""}},
		},
		Footer:    "forecast ```9000```",
		Timestamp: time.Date(2024, 3, 2, 0, 5, 0, 0, time.UTC),
	}
	out := msg.RenderMarkdown()
	assert.True(t, strings.HasPrefix(out, "*btc: none_to_buy*"))
	assert.Contains(t, out, "position\n```\nmode buy\nstop 883.8\n```")
	assert.NotContains(t, out, "empty")
	assert.Contains(t, out, "forecast '''9000'''")
	assert.True(t, strings.HasSuffix(out, "2024-03-02 00:05:00 UTC"))

	long := Message{Sections: []Section{{Lines: []string{strings.Repeat("a", 5000)}}}}
	assert.LessOrEqual(t, len(long.RenderMarkdown()), maxMessageLen+3)
}
