// File: internal/infra/mail/gmail_client.go
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"course-enrollment/internal/config"
	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/infra/logging"
)

var _ adapter.MailboxClient = (*GmailClient)(nil)

const (
	DefaultAPIBase = "https://gmail.googleapis.com/gmail/v1/users/me"
	// Tokens are refreshed this long before their reported expiry.
	tokenExpirySkew = 30 * time.Second
	maxErrorBody    = 200
)

var ErrMissingCredentials = errors.New("mail: missing oauth client id, secret or refresh token")

// APIError is a non-2xx answer from the mailbox API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mail: %s failed with status %d: %s", e.Op, e.Status, e.Body)
}

// GmailClient talks to the Gmail REST API for the authorized user. Access
// tokens come from an OAuth2 refresh token and are renewed on expiry or on a 401.
type GmailClient struct {
	apiBase string
	http    *http.Client
	oauth   *oauth2.Config
	refresh string
	log     *zerolog.Logger

	mu sync.Mutex
	ts oauth2.TokenSource
}

type Option func(*GmailClient)

// WithAPIBase points the client at another API root (tests, proxies).
func WithAPIBase(base string) Option {
	return func(c *GmailClient) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithTokenURL overrides the OAuth2 token endpoint.
func WithTokenURL(u string) Option {
	return func(c *GmailClient) { c.oauth.Endpoint.TokenURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *GmailClient) { c.http = h }
}

func NewGmailClient(cfg config.MailboxConfig, logger *zerolog.Logger, opts ...Option) (*GmailClient, error) {
	id := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	refresh := strings.TrimSpace(cfg.RefreshToken)
	if id == "" || secret == "" || refresh == "" {
		return nil, ErrMissingCredentials
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &GmailClient{
		apiBase: DefaultAPIBase,
		http:    &http.Client{Timeout: timeout},
		oauth: &oauth2.Config{
			ClientID:     id,
			ClientSecret: secret,
			Endpoint:     google.Endpoint,
		},
		refresh: refresh,
		log:     logging.OrNop(logger),
	}
	for _, o := range opts {
		o(c)
	}
	c.ts = c.newTokenSource()
	return c, nil
}

func (c *GmailClient) newTokenSource() oauth2.TokenSource {
	// The token exchange shares the API client's timeout and transport.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
	base := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refresh})
	return oauth2.ReuseTokenSourceWithExpiry(nil, base, tokenExpirySkew)
}

func (c *GmailClient) accessToken(force bool) (string, error) {
	c.mu.Lock()
	if force {
		c.ts = c.newTokenSource()
	}
	ts := c.ts
	c.mu.Unlock()

	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("mail: token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("mail: token exchange returned no access token")
	}
	return tok.AccessToken, nil
}

// do sends an authorized request and decodes a JSON object into out. A 401
// forces one token refresh and retry.
func (c *GmailClient) do(ctx context.Context, op, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}
	u := c.apiBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.accessToken(attempt > 0)
		if err != nil {
			return err
		}
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rdr)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("mail: %s: %w", op, err)
		}
		raw, rerr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		_ = resp.Body.Close()
		if rerr != nil {
			return fmt.Errorf("mail: %s: read body: %w", op, rerr)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.log.Debug().Str("op", op).Msg("mailbox api returned 401, refreshing token")
			continue
		}
		if resp.StatusCode >= 400 {
			snippet := string(raw)
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			return &APIError{Op: op, Status: resp.StatusCode, Body: snippet}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("mail: %s returned invalid JSON: %w", op, err)
		}
		return nil
	}
	return &APIError{Op: op, Status: http.StatusUnauthorized}
}

type historyMessage struct {
	ID string `json:"id"`
}

type historyResponse struct {
	History []struct {
		Messages      []historyMessage `json:"messages"`
		MessagesAdded []struct {
			Message *historyMessage `json:"message"`
		} `json:"messagesAdded"`
	} `json:"history"`
	NextPageToken string `json:"nextPageToken"`
}

// ListHistory walks every history page after startHistoryID and returns the
// referenced message ids in first-seen order.
func (c *GmailClient) ListHistory(ctx context.Context, startHistoryID string) ([]string, error) {
	start := strings.TrimSpace(startHistoryID)
	if start == "" {
		return nil, errors.New("mail: startHistoryId must not be empty")
	}
	var (
		ids  []string
		seen = map[string]struct{}{}
		page string
	)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for {
		q := url.Values{"startHistoryId": {start}}
		if page != "" {
			q.Set("pageToken", page)
		}
		var resp historyResponse
		if err := c.do(ctx, "list_history", http.MethodGet, "/history", q, nil, &resp); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				return nil, fmt.Errorf("%w: %v", domain.ErrHistoryExpired, err)
			}
			return nil, err
		}
		for _, h := range resp.History {
			for _, m := range h.Messages {
				add(m.ID)
			}
			for _, a := range h.MessagesAdded {
				if a.Message != nil {
					add(a.Message.ID)
				}
			}
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		page = resp.NextPageToken
	}
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []*messagePart `json:"parts"`
}

type messageResponse struct {
	ID       string       `json:"id"`
	ThreadID string       `json:"threadId"`
	Snippet  string       `json:"snippet"`
	Payload  *messagePart `json:"payload"`
}

func (c *GmailClient) GetMessage(ctx context.Context, id string) (*model.MailMessage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("mail: message id must not be empty")
	}
	var resp messageResponse
	q := url.Values{"format": {"full"}}
	if err := c.do(ctx, "get_message", http.MethodGet, "/messages/"+url.PathEscape(id), q, nil, &resp); err != nil {
		return nil, err
	}
	msg := &model.MailMessage{
		ID:       resp.ID,
		ThreadID: resp.ThreadID,
		Snippet:  resp.Snippet,
		Headers:  map[string]string{},
	}
	if resp.Payload != nil {
		for _, h := range resp.Payload.Headers {
			if h.Name != "" {
				msg.Headers[h.Name] = h.Value
			}
		}
		text, err := extractBodyText(resp.Payload)
		if err != nil {
			return nil, err
		}
		msg.BodyText = text
	}
	return msg, nil
}

// extractBodyText prefers text/plain, then flattened text/html, then the top-level body.
func extractBodyText(p *messagePart) (string, error) {
	if data := findPartData(p, "text/plain"); data != "" {
		return decodeBody(data)
	}
	if data := findPartData(p, "text/html"); data != "" {
		h, err := decodeBody(data)
		if err != nil {
			return "", err
		}
		return HTMLToText(h), nil
	}
	if p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	return "", nil
}

func findPartData(p *messagePart, mime string) string {
	if p == nil {
		return ""
	}
	if p.MimeType == mime && p.Body.Data != "" {
		return p.Body.Data
	}
	for _, part := range p.Parts {
		if d := findPartData(part, mime); d != "" {
			return d
		}
	}
	return ""
}

// decodeBody accepts padded or unpadded base64url.
func decodeBody(data string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", fmt.Errorf("mail: decode message body: %w", err)
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

// flexString decodes a JSON string or number. The API encodes 64-bit ids as
// strings, proxies sometimes re-encode them as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type watchResponse struct {
	HistoryID  flexString `json:"historyId"`
	Expiration flexString `json:"expiration"`
}

// Watch subscribes the inbox to push notifications on topic.
func (c *GmailClient) Watch(ctx context.Context, topic string) (*model.WatchResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("mail: topic must not be empty")
	}
	body := map[string]any{
		"topicName":         topic,
		"labelIds":          []string{"INBOX"},
		"labelFilterAction": "include",
	}
	var resp watchResponse
	if err := c.do(ctx, "watch", http.MethodPost, "/watch", nil, body, &resp); err != nil {
		return nil, err
	}
	res := &model.WatchResult{HistoryID: string(resp.HistoryID)}
	if ms, err := strconv.ParseInt(string(resp.Expiration), 10, 64); err == nil && ms > 0 {
		t := time.UnixMilli(ms).UTC()
		res.Expiration = &t
	}
	return res, nil
}
