package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/naicoco/guestbook/internal/domain"
	"github.com/naicoco/guestbook/internal/identity"
	"github.com/naicoco/guestbook/internal/narrative"
)

// GuestbookHandler handles the narrative endpoints.
type GuestbookHandler struct {
	*Handler
}

// NewGuestbookHandler creates the narrative handler.
func NewGuestbookHandler(base *Handler) *GuestbookHandler {
	return &GuestbookHandler{Handler: base}
}

// RegisterRoutes registers narrative routes.
func (h *GuestbookHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/narrative", h.GetNarrative)
		r.Post("/advance", h.act(narrative.ActionAdvance))
		r.Post("/share", h.act(narrative.ActionShare))
		r.Post("/submit", h.act(narrative.ActionSubmit))
		r.Post("/reset", h.act(narrative.ActionReset))
	})
}

func (h *GuestbookHandler) session(w http.ResponseWriter, r *http.Request) *domain.GuestSession {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		Error(w, http.StatusUnauthorized, "no session")
		return nil
	}

	sess, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to load session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return nil
	}
	if sess == nil {
		Error(w, http.StatusUnauthorized, "session not found")
		return nil
	}
	return sess
}

// GetNarrative returns the rendered narrative for the visitor's session.
func (h *GuestbookHandler) GetNarrative(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	JSON(w, http.StatusOK, narrative.Render(sess, narrative.OutcomeIgnored))
}

// act builds a POST handler for one action kind. The request body supplies
// the input fields; the route fixes the kind so a client cannot smuggle a
// different action through the body.
func (h *GuestbookHandler) act(kind narrative.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := h.session(w, r)
		if sess == nil {
			return
		}

		var action narrative.Action
		// An empty body is fine: advance and reset carry no fields.
		if err := json.NewDecoder(r.Body).Decode(&action); err != nil && !errors.Is(err, io.EOF) {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		action.Kind = kind

		outcome, err := h.machine.Step(r.Context(), sess, action)
		switch {
		case errors.Is(err, narrative.ErrIllegalAction):
			Error(w, http.StatusConflict, "not available right now")
			return
		case errors.Is(err, narrative.ErrEmptySegment):
			Error(w, http.StatusBadRequest, "a few words are needed first")
			return
		case err != nil:
			slog.Error("Narrative step failed", "session_id", sess.SessionID, "error", err)
			Error(w, http.StatusInternalServerError, "something went wrong")
			return
		}

		// A tripped bot trap changes nothing and gets the unchanged view,
		// indistinguishable from a no-op.
		if outcome != narrative.OutcomeIgnored {
			sess.UpdatedAt = time.Now()
			if err := h.repo.UpsertSession(r.Context(), sess); err != nil {
				slog.Error("Failed to persist session", "session_id", sess.SessionID, "error", err)
				Error(w, http.StatusInternalServerError, "failed to save session")
				return
			}
			h.hub.Notify(r.Context(), sess.SessionID)
			slog.Info("Narrative step",
				"session_id", sess.SessionID,
				"action", string(kind),
				"outcome", outcome.String(),
				"stage", sess.Stage.String())
		}

		JSON(w, http.StatusOK, narrative.Render(sess, outcome))
	}
}
