package handler

import (
	"net/http"

	"twofa-service/internal/service/smscode"
	"twofa-service/pkg/response"
)

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// --- TOTP ---

func (h *AuthHandler) HandleTotpSetup(w http.ResponseWriter, r *http.Request) {
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

	setup, err := h.totpSvc.Setup(r.Context(), profile.ID, profile.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, setup)
}

func (h *AuthHandler) HandleTotpVerify(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req VerifyCodeRequest
	if err := decodeRequestBody(r, &req); err != nil || req.Code == "" {
		response.Error(w, http.StatusBadRequest, "Verification code required")
		return
	}

	if err := h.totpSvc.VerifyAndEnable(r.Context(), sess.AuthenticatedUserID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "TOTP 2FA enabled successfully")
}

func (h *AuthHandler) HandleTotpDisable(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.totpSvc.Disable(r.Context(), sess.AuthenticatedUserID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "TOTP 2FA disabled successfully")
}

func (h *AuthHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	codes, err := h.totpSvc.RegenerateBackupCodes(r.Context(), sess.AuthenticatedUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"backup_codes": codes,
	})
}

// --- SMS ---

func (h *AuthHandler) HandleSmsSetup(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.smsSvc.SendCode(r.Context(), sess.AuthenticatedUserID, smscode.PurposeEnableSMS); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Verification code sent to your phone")
}

func (h *AuthHandler) HandleSmsVerify(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req VerifyCodeRequest
	if err := decodeRequestBody(r, &req); err != nil || req.Code == "" {
		response.Error(w, http.StatusBadRequest, "Verification code required")
		return
	}

	if err := h.smsSvc.Enable(r.Context(), sess.AuthenticatedUserID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "SMS 2FA enabled successfully")
}

// HandleSmsResend serves both the pending-login state and the authenticated
// setup flow, so it sits outside RequireFullAuth.
func (h *AuthHandler) HandleSmsResend(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionFromRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "No active verification session")
		return
	}

	if err := h.coordinator.ResendCode(r.Context(), sess); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Verification code resent")
}

func (h *AuthHandler) HandleSmsDisable(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.smsSvc.Disable(r.Context(), sess.AuthenticatedUserID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "SMS 2FA disabled successfully")
}

func (h *AuthHandler) Handle2FAStatus(w http.ResponseWriter, r *http.Request) {
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

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"totp_enabled": profile.TotpEnabled,
		"sms_enabled":  profile.SmsEnabled,
	})
}
