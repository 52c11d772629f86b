package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"twofa-service/internal/domain"
	"twofa-service/pkg/response"
	"twofa-service/pkg/xerrors"
)

const sessionCookieName = "session_token"

func decodeRequestBody(r *http.Request, target interface{}) error {
	return json.NewDecoder(r.Body).Decode(target)
}

// sessionFromRequest resolves the session referenced by the request cookie.
func (h *AuthHandler) sessionFromRequest(r *http.Request) (*domain.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, xerrors.ErrSessionNotFound
	}
	return h.sessions.Get(r.Context(), cookie.Value)
}

// getOrCreateSession returns the request's session, creating one and setting
// the cookie when none exists yet.
func (h *AuthHandler) getOrCreateSession(w http.ResponseWriter, r *http.Request) (*domain.Session, error) {
	sess, err := h.sessionFromRequest(r)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, xerrors.ErrSessionNotFound) {
		return nil, err
	}

	sess, err = h.sessions.Create(r.Context())
	if err != nil {
		return nil, err
	}
	h.setSessionCookie(w, sess.Token)
	return sess, nil
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeServiceError maps service errors to HTTP responses. Unexpected errors
// are logged and surfaced as a generic 500 so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidCredentials),
		errors.Is(err, xerrors.ErrInvalidCode),
		errors.Is(err, xerrors.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, xerrors.ErrDuplicateEmail),
		errors.Is(err, xerrors.ErrDuplicateUsername),
		errors.Is(err, xerrors.ErrEmailRequired),
		errors.Is(err, xerrors.ErrUsernameRequired),
		errors.Is(err, xerrors.ErrPasswordRequired),
		errors.Is(err, xerrors.ErrInvalidEmailFormat),
		errors.Is(err, xerrors.ErrInvalidPhoneFormat),
		errors.Is(err, xerrors.ErrInvalidRequest),
		errors.Is(err, xerrors.ErrNoPhoneNumber),
		errors.Is(err, xerrors.ErrTotpNotConfigured),
		errors.Is(err, xerrors.ErrUnsupported2FAMethod),
		errors.Is(err, xerrors.ErrNoPendingVerification):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrTooManyCodeRequests),
		errors.Is(err, xerrors.ErrCodeRequestCooldown):
		response.Error(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, xerrors.ErrSendFailure):
		response.Error(w, http.StatusBadGateway, xerrors.ErrSendFailure.Error())
	default:
		log.Printf("[ERROR] unexpected service error: %v", err)
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
