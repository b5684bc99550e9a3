package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/infra/logging"
)

func (h *Handler) createCheckoutIntent(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c := claimsFrom(r.Context())
	intent, err := h.d.Checkout.CreateIntent(r.Context(), c.UID(), req.CourseIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.PaymentFilter{
		Provider: strings.TrimSpace(q.Get("provider")),
		Query:    strings.TrimSpace(q.Get("q")),
	}
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		st, ok := model.ParsePaymentStatus(s)
		if !ok {
			h.fail(w, r, domain.NewValidationError("invalid status", map[string]any{"status": s}))
			return
		}
		f.Status = st
	}
	limit, err := queryLimit(r, 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items, next, err := h.d.Activation.ListPayments(r.Context(), f, limit, q.Get("cursor"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]paymentResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "nextCursor": nextCursor(next)})
}

// queryLimit parses ?limit=; zero means unset. max bounds it when positive.
func queryLimit(r *http.Request, max int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || (max > 0 && n > max) {
		return 0, domain.NewValidationError("invalid limit", map[string]any{"limit": s})
	}
	return n, nil
}

// nextCursor renders an empty token as JSON null.
func nextCursor(next string) *string {
	if next == "" {
		return nil
	}
	return &next
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.d.Activation.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) activatePayment(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	p, res, err := h.d.Activation.ActivateManually(r.Context(), chi.URLParam(r, "id"), c.UID())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logging.With(r.Context(), h.log).Info().Str("payment_id", p.ID).Str("result", string(res)).Msg("payment_manual_activation")
	writeJSON(w, http.StatusOK, map[string]any{"result": res, "payment": toPaymentResponse(p)})
}

func (h *Handler) rejectPayment(w http.ResponseWriter, r *http.Request) {
	var req rejectPaymentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	c := claimsFrom(r.Context())
	p, res, err := h.d.Activation.RejectManually(r.Context(), chi.URLParam(r, "id"), c.UID(), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logging.With(r.Context(), h.log).Info().Str("payment_id", p.ID).Str("result", string(res)).Msg("payment_manual_rejection")
	writeJSON(w, http.StatusOK, map[string]any{"result": res, "payment": toPaymentResponse(p)})
}
