package handler

import (
	"net/http"

	"twofa-service/pkg/response"
)

type UpdateProfileRequest struct {
	PhoneNumber *string `json:"phone_number"`
	Bio         *string `json:"bio"`
}

func (h *AuthHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
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

func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := decodeRequestBody(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.authSvc.UpdateProfile(r.Context(), sess.AuthenticatedUserID, req.PhoneNumber, req.Bio)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, profile)
}
