// Package identity provides anonymous per-visitor identity primitives.
//
// Each browser gets a random cookie identity on first contact; the identity
// keys the visitor's guest session so two visitors (or two browsers) never
// observe each other's drafts or guard state.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/naicoco/guestbook/internal/domain"
	"github.com/naicoco/guestbook/internal/store"
)

const (
	// AnonCookieName carries the visitor's anonymous identity.
	AnonCookieName   = "gaze_anon_id"
	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// SessionIDFromContext extracts the visitor session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		setAnonCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateAnonID()
	if err != nil {
		return "", err
	}
	setAnonCookie(w, id, isDev)
	return id, nil
}

func ensureSession(ctx context.Context, repo store.Repository, sessionID string) error {
	sess, err := repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess != nil {
		return nil
	}

	now := time.Now()
	return repo.UpsertSession(ctx, &domain.GuestSession{
		SessionID: sessionID,
		Stage:     domain.StageGaze,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Middleware injects the anonymous visitor identity and guarantees a guest
// session row exists before any handler runs.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := getOrCreateAnonID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			if err := ensureSession(r.Context(), repo, sessionID); err != nil {
				http.Error(w, `{"error":"failed to initialize session"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
