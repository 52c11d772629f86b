package handler

import (
	"net/http"

	"twofa-service/internal/service/auth"
	"twofa-service/internal/service/login"
	"twofa-service/internal/service/smscode"
	"twofa-service/internal/service/totp"
	"twofa-service/internal/session"
	"twofa-service/pkg/response"
)

type AuthHandler struct {
	coordinator *login.Coordinator
	authSvc     *auth.Service
	totpSvc     *totp.Service
	smsSvc      *smscode.Service
	sessions    session.Store
}

func NewAuthHandler(
	coordinator *login.Coordinator,
	authSvc *auth.Service,
	totpSvc *totp.Service,
	smsSvc *smscode.Service,
	sessions session.Store,
) *AuthHandler {
	return &AuthHandler{
		coordinator: coordinator,
		authSvc:     authSvc,
		totpSvc:     totpSvc,
		smsSvc:      smsSvc,
		sessions:    sessions,
	}
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Verify2FARequest struct {
	Method string `json:"method"`
	Code   string `json:"code"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeRequestBody(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var phone *string
	if req.PhoneNumber != "" {
		phone = &req.PhoneNumber
	}

	profile, err := h.authSvc.Register(r.Context(), req.Email, req.Username, req.Password, phone)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, profile)
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeRequestBody(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.getOrCreateSession(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.coordinator.Login(r.Context(), sess, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

func (h *AuthHandler) HandleVerify2FA(w http.ResponseWriter, r *http.Request) {
	var req Verify2FARequest
	if err := decodeRequestBody(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		response.Error(w, http.StatusBadRequest, "Verification code required")
		return
	}

	sess, err := h.sessionFromRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "No pending 2FA verification")
		return
	}

	result, err := h.coordinator.VerifySecondFactor(r.Context(), sess, req.Method, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionFromRequest(r)
	if err == nil {
		if err := h.coordinator.Logout(r.Context(), sess); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	h.clearSessionCookie(w)

	response.Message(w, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.coordinator.CurrentUser(r.Context(), sess)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, profile)
}
