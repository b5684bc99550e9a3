package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-enrollment/internal/config"
	"course-enrollment/internal/domain"
)

func b64url(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

type fakeGmail struct {
	t          *testing.T
	tokenCalls atomic.Int32
	api        http.HandlerFunc
}

func (f *fakeGmail) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-" + string(rune('0'+n)),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/api/", f.api)
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, srv *httptest.Server) *GmailClient {
	t.Helper()
	c, err := NewGmailClient(config.MailboxConfig{
		ClientID: "client-1", ClientSecret: "secret-1", RefreshToken: "refresh-1", HTTPTimeout: 5 * time.Second,
	}, nil, WithAPIBase(srv.URL+"/api"), WithTokenURL(srv.URL+"/token"))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewGmailClient_RequiresCredentials(t *testing.T) {
	_, err := NewGmailClient(config.MailboxConfig{ClientID: "id"}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestListHistory_PaginatesAndDeduplicates(t *testing.T) {
	f := &fakeGmail{t: t}
	f.api = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("startHistoryId"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"history": []any{
					map[string]any{"messages": []any{map[string]any{"id": "m1"}}},
					map[string]any{"messagesAdded": []any{
						map[string]any{"message": map[string]any{"id": "m1"}},
						map[string]any{"message": map[string]any{"id": "m2"}},
					}},
				},
				"nextPageToken": "p2",
			})
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		writeJSON(w, map[string]any{
			"history": []any{map[string]any{"messagesAdded": []any{
				map[string]any{"message": map[string]any{"id": "m3"}},
				map[string]any{"message": map[string]any{"id": "m2"}},
			}}},
		})
	}
	srv := f.server()
	defer srv.Close()

	ids, err := newTestClient(t, srv).ListHistory(context.Background(), " 100 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
	assert.EqualValues(t, 1, f.tokenCalls.Load(), "token is reused across pages")
}

func TestListHistory_RejectsEmptyStart(t *testing.T) {
	f := &fakeGmail{t: t, api: func(w http.ResponseWriter, r *http.Request) { t.Fatal("unexpected call") }}
	srv := f.server()
	defer srv.Close()

	_, err := newTestClient(t, srv).ListHistory(context.Background(), "  ")
	assert.Error(t, err)
}

func TestGetMessage_PrefersPlainText(t *testing.T) {
	f := &fakeGmail{t: t}
	f.api = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/m1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		writeJSON(w, map[string]any{
			"id": "m1", "threadId": "t1", "snippet": "snip",
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers": []any{
					map[string]any{"name": "From", "value": "Boosty <noreply@boosty.to>"},
					map[string]any{"name": "Subject", "value": "New payment"},
				},
				"parts": []any{
					map[string]any{"mimeType": "text/html", "body": map[string]any{"data": b64url("<p>html SW-HTML0000</p>")}},
					map[string]any{"mimeType": "text/plain", "body": map[string]any{"data": b64url("Code: SW-AB12CD34")}},
				},
			},
		})
	}
	srv := f.server()
	defer srv.Close()

	msg, err := newTestClient(t, srv).GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Code: SW-AB12CD34", msg.BodyText)
	assert.Equal(t, "New payment", msg.Header("subject"))
	assert.Equal(t, "t1", msg.ThreadID)
	assert.Equal(t, "snip", msg.Snippet)
}

func TestGetMessage_HTMLFallbackAndPaddedBase64(t *testing.T) {
	payloads := []map[string]any{
		{
			"mimeType": "multipart/mixed",
			"parts": []any{map[string]any{
				"mimeType": "multipart/alternative",
				"parts": []any{map[string]any{"mimeType": "text/html", "body": map[string]any{
					"data": b64url("<html><style>p{}</style><body><p>Code:</p><b>SW-AB12CD34</b>&amp;done</body></html>"),
				}}},
			}},
		},
		{"mimeType": "text/plain", "body": map[string]any{"data": base64.URLEncoding.EncodeToString([]byte("padded: SW-AB12CD34"))}},
	}
	want := []string{"Code: SW-AB12CD34 &done", "padded: SW-AB12CD34"}

	for i, p := range payloads {
		p := p
		f := &fakeGmail{t: t, api: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"id": "m", "payload": p})
		}}
		srv := f.server()
		msg, err := newTestClient(t, srv).GetMessage(context.Background(), "m")
		srv.Close()
		require.NoError(t, err)
		assert.Equal(t, want[i], msg.BodyText)
	}
}

func TestRequest_RefreshesTokenOnceOn401(t *testing.T) {
	var calls atomic.Int32
	f := &fakeGmail{t: t}
	f.api = func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer access-2", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"history": []any{}})
	}
	srv := f.server()
	defer srv.Close()

	ids, err := newTestClient(t, srv).ListHistory(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}

func TestRequest_SurfacesAPIErrors(t *testing.T) {
	f := &fakeGmail{t: t, api: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"gone"}`))
	}}
	srv := f.server()
	defer srv.Close()

	_, err := newTestClient(t, srv).GetMessage(context.Background(), "m1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "get_message", apiErr.Op)
}

func TestListHistory_ExpiredStartID(t *testing.T) {
	f := &fakeGmail{t: t, api: func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("startHistoryId"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	}}
	srv := f.server()
	defer srv.Close()

	_, err := newTestClient(t, srv).ListHistory(context.Background(), "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHistoryExpired)
}

func TestWatch_SendsInboxFilterAndParsesSeed(t *testing.T) {
	f := &fakeGmail{t: t}
	f.api = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/watch", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "projects/p/topics/t", body["topicName"])
		assert.Equal(t, []any{"INBOX"}, body["labelIds"])
		assert.Equal(t, "include", body["labelFilterAction"])
		writeJSON(w, map[string]any{"historyId": "12345", "expiration": "1767225600000"})
	}
	srv := f.server()
	defer srv.Close()

	res, err := newTestClient(t, srv).Watch(context.Background(), " projects/p/topics/t ")
	require.NoError(t, err)
	assert.Equal(t, "12345", res.HistoryID)
	require.NotNil(t, res.Expiration)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *res.Expiration)
}

func TestWatch_AcceptsNumericFields(t *testing.T) {
	f := &fakeGmail{t: t, api: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"historyId": 777, "expiration": null}`))
	}}
	srv := f.server()
	defer srv.Close()

	res, err := newTestClient(t, srv).Watch(context.Background(), "topic")
	require.NoError(t, err)
	assert.Equal(t, "777", res.HistoryID)
	assert.Nil(t, res.Expiration)
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "a b c", HTMLToText("<div>a</div><div>b<br>c</div>"))
	assert.Equal(t, "", HTMLToText(""))
}
