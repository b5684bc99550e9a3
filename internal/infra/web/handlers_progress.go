package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"course-enrollment/internal/domain/model"
)

func (h *Handler) writeProgress(w http.ResponseWriter, r *http.Request, uid string) {
	p, err := h.d.Progress.GetProgress(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	steps, err := h.d.Progress.ListSteps(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{Progress: p, Steps: toStepResponses(steps)})
}

func (h *Handler) myProgress(w http.ResponseWriter, r *http.Request) {
	h.writeProgress(w, r, claimsFrom(r.Context()).UID())
}

func (h *Handler) studentProgress(w http.ResponseWriter, r *http.Request) {
	h.writeProgress(w, r, chi.URLParam(r, "uid"))
}

func (h *Handler) setMyStepDone(w http.ResponseWriter, r *http.Request) {
	var req setStepDoneRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	uid := claimsFrom(r.Context()).UID()
	step, p, err := h.d.Progress.SetStepDone(r.Context(), uid, chi.URLParam(r, "stepID"), *req.IsDone, req.Comment, req.Link)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"step":     toStepResponses([]*model.Step{step})[0],
		"progress": p,
	})
}

func (h *Handler) addSteps(w http.ResponseWriter, r *http.Request) {
	var req addStepsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in := make([]model.StepInput, 0, len(req.Items))
	for _, it := range req.Items {
		in = append(in, model.StepInput{Title: it.Title, Description: it.Description, MaterialURL: it.MaterialURL})
	}
	steps, p, err := h.d.Progress.AddSteps(r.Context(), chi.URLParam(r, "uid"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": toStepResponses(steps), "progress": p})
}

func (h *Handler) deleteStep(w http.ResponseWriter, r *http.Request) {
	p, err := h.d.Progress.DeleteStep(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "stepID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": p})
}

func (h *Handler) reorderSteps(w http.ResponseWriter, r *http.Request) {
	var req reorderStepsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	steps, err := h.d.Progress.ReorderSteps(r.Context(), chi.URLParam(r, "uid"), req.StepIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toStepResponses(steps)})
}

func (h *Handler) resetPlan(w http.ResponseWriter, r *http.Request) {
	var req resetPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.d.Progress.ResetPlan(r.Context(), chi.URLParam(r, "uid"), req.GoalID, req.Confirm)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": p})
}

func (h *Handler) revokeCompletion(w http.ResponseWriter, r *http.Request) {
	c, p, err := h.d.Progress.RevokeCompletion(r.Context(), chi.URLParam(r, "id"), claimsFrom(r.Context()).UID())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completion": toCompletionResponse(c), "progress": p})
}

func (h *Handler) listCompletions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 200)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	items, next, err := h.d.Progress.ListCompletions(r.Context(), q.Get("status"), limit, q.Get("cursor"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]completionResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toCompletionResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "nextCursor": nextCursor(next)})
}

func (h *Handler) updateCompletion(w http.ResponseWriter, r *http.Request) {
	var req updateCompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.d.Progress.UpdateCompletion(r.Context(), chi.URLParam(r, "id"), model.CompletionPatch{Comment: req.Comment, Link: req.Link})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completion": toCompletionResponse(c)})
}
