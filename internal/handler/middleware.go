package handler

import (
	"context"
	"net/http"

	"twofa-service/internal/domain"
	"twofa-service/pkg/response"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

func sessionFromContext(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey).(*domain.Session)
	return sess, ok
}

// RequireFullAuth admits only sessions with a fully authenticated principal:
// password verified and, when a second factor is enabled, that factor
// completed. The session is attached to the request context.
func (h *AuthHandler) RequireFullAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessionFromRequest(r)
		if err != nil || !sess.Authenticated() {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey, sess)))
	})
}
