package model

import (
	"strconv"
	"strings"
	"time"
)

// MailboxCheckpoint stores the cursor into the mailbox change history.
// An empty LastHistoryID means no baseline has been established yet.
type MailboxCheckpoint struct {
	Enabled         bool
	WatchTopic      string
	LastHistoryID   string
	WatchExpiration *time.Time
	UpdatedAt       time.Time
}

func (c *MailboxCheckpoint) HasBaseline() bool {
	return c != nil && strings.TrimSpace(c.LastHistoryID) != ""
}

// CheckpointAdvances reports whether next may replace current. History ids
// are compared numerically when both parse; otherwise any non-empty id wins.
func CheckpointAdvances(current, next string) bool {
	next = strings.TrimSpace(next)
	if next == "" {
		return false
	}
	current = strings.TrimSpace(current)
	if current == "" {
		return true
	}
	c, errC := strconv.ParseUint(current, 10, 64)
	n, errN := strconv.ParseUint(next, 10, 64)
	if errC != nil || errN != nil {
		return true
	}
	return n >= c
}

// MailNotification is the decoded webhook payload.
type MailNotification struct {
	MailboxAddress string `json:"emailAddress"`
	CheckpointID   string `json:"historyId"`
}

// MailMessage is the subset of a mailbox message the ingestor inspects.
type MailMessage struct {
	ID       string
	ThreadID string
	Headers  map[string]string
	BodyText string
	Snippet  string
}

func (m *MailMessage) Header(name string) string {
	if m == nil {
		return ""
	}
	if v, ok := m.Headers[name]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// WatchResult is the seed returned by the mailbox when a watch is (re)established.
type WatchResult struct {
	HistoryID  string
	Expiration *time.Time
}
