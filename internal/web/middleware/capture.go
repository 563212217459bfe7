package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	captureCookieName = "snapmatch_capture"
	captureDuration   = 7 * 24 * time.Hour
)

const captureIDContextKey contextKey = "capture_id"

// CaptureSession binds a browser to a capture session through a signed
// cookie carrying a UUID. A missing or tampered cookie gets a fresh ID, so
// every visitor always has exactly one capture session of their own.
func CaptureSession(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		secret = "snapmatch-dev-secret-change-in-production"
	}
	s := signer{secret: []byte(secret)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := captureIDFromCookie(r, s)
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     captureCookieName,
					Value:    id + "." + s.sign(id),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(captureDuration.Seconds()),
				})
			}

			ctx := context.WithValue(r.Context(), captureIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func captureIDFromCookie(r *http.Request, s signer) string {
	cookie, err := r.Cookie(captureCookieName)
	if err != nil {
		return ""
	}
	parts := strings.SplitN(cookie.Value, ".", 2)
	if len(parts) != 2 || !s.verify(parts[0], parts[1]) {
		return ""
	}
	if _, err := uuid.Parse(parts[0]); err != nil {
		return ""
	}
	return parts[0]
}

// CaptureIDFromContext returns the capture-session ID for the request.
func CaptureIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(captureIDContextKey).(string)
	return id
}

// SetCaptureIDInContext adds a capture-session ID to the context.
// This is primarily for testing - use CaptureSession middleware in production.
func SetCaptureIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, captureIDContextKey, id)
}
