package web

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/infra/logging"
)

// mailboxWebhook answers 200 to every delivery that carries the right secret,
// including malformed and failed ones, so the push service never redelivers.
// A failed delivery leaves the checkpoint in place and the next push rescans.
func (h *Handler) mailboxWebhook(w http.ResponseWriter, r *http.Request) {
	l := logging.With(r.Context(), h.log)
	if !h.d.Mailbox.VerifySecret(strings.TrimSpace(r.Header.Get("X-Webhook-Secret"))) {
		writeErrorBody(w, http.StatusForbidden, codeForbidden, "invalid webhook secret", nil)
		return
	}

	n, reason := decodeMailboxEnvelope(r.Body)
	if reason != "" {
		l.Info().Str("reason", reason).Msg("mailbox_webhook_ignored")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	mailbox := logging.Redact(n.MailboxAddress, h.d.Dev)
	report, err := h.d.Mailbox.HandleNotification(r.Context(), n)
	if err != nil {
		l.Error().Err(err).Str("mailbox", mailbox).Str("history_id", n.CheckpointID).Msg("mailbox_webhook_failed")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	if report.Skipped != "" {
		l.Info().Str("reason", report.Skipped).Str("mailbox", mailbox).Msg("mailbox_webhook_skipped")
	} else {
		l.Info().
			Str("mailbox", mailbox).
			Int("matched", report.Matched).
			Int("activated", report.Activated).
			Bool("advanced", report.CheckpointAdvanced).
			Msg("mailbox_webhook_processed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// decodeMailboxEnvelope returns a non-empty reason when the body is unusable.
func decodeMailboxEnvelope(body io.Reader) (model.MailNotification, string) {
	var env mailboxEnvelope
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&env); err != nil {
		return model.MailNotification{}, "invalid_json"
	}
	if env.Message == nil {
		return model.MailNotification{}, "missing_message"
	}
	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		// Some publishers send unpadded or URL-safe data.
		raw, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(env.Message.Data, "="))
		if err != nil {
			return model.MailNotification{}, "invalid_data"
		}
	}
	var payload struct {
		EmailAddress string          `json:"emailAddress"`
		HistoryID    json.RawMessage `json:"historyId"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.MailNotification{}, "invalid_data"
	}
	n := model.MailNotification{
		MailboxAddress: strings.TrimSpace(payload.EmailAddress),
		CheckpointID:   historyIDString(payload.HistoryID),
	}
	return n, ""
}

// historyIDString accepts the id as a JSON string or number.
func historyIDString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var num json.Number
	if json.Unmarshal(raw, &num) == nil {
		return num.String()
	}
	return ""
}

func (h *Handler) renewWatch(w http.ResponseWriter, r *http.Request) {
	cp, err := h.d.Watch.Renew(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"historyId":       cp.LastHistoryID,
		"watchExpiration": cp.WatchExpiration,
	})
}
