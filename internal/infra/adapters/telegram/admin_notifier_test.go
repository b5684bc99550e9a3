package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-enrollment/internal/config"
)

func fakeBotAPI(t *testing.T, sent *[]map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"id": 1, "is_bot": true, "first_name": "bot", "username": "test_bot"},
			})
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			*sent = append(*sent, map[string]string{
				"chat_id": r.PostForm.Get("chat_id"),
				"text":    r.PostForm.Get("text"),
			})
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"message_id": 10, "date": 0, "chat": map[string]any{"id": 42}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestAdminNotifier_SendsToAdminChat(t *testing.T) {
	var sent []map[string]string
	srv := fakeBotAPI(t, &sent)
	defer srv.Close()

	n, err := NewAdminNotifier(config.TelegramConfig{BotToken: "tok", AdminChatID: 42}, nil,
		WithAPIEndpoint(srv.URL+"/bot%s/%s"))
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), "payment activated"))
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0]["chat_id"])
	assert.Equal(t, "payment activated", sent[0]["text"])
}

func TestAdminNotifier_RequiresConfig(t *testing.T) {
	_, err := NewAdminNotifier(config.TelegramConfig{AdminChatID: 1}, nil)
	assert.Error(t, err)
	_, err = NewAdminNotifier(config.TelegramConfig{BotToken: "tok"}, nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, NewNoopNotifier(nil).Notify(context.Background(), "x"))
}
