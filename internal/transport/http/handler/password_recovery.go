package handler

import (
	"net/http"

	"github.com/fiscus-api/internal/application/recovery"
	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// PasswordRecoveryHandler handles the unauthenticated password reset flow.
type PasswordRecoveryHandler struct {
	svc recovery.Service
}

func NewPasswordRecoveryHandler(svc recovery.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req domain.PasswordRecoveryRequest
		if err := decodeValid(w, r, &req); err != nil {
			httpError(w, err)
			return
		}
		if err := h.svc.Request(r.Context(), req.Email); err != nil {
			httpError(w, err)
			return
		}
		writeData(w, http.StatusOK, MessageData{Message: "if the address is registered, a code has been sent"})
	case "validate-code":
		var req domain.ValidateResetCodeRequest
		if err := decodeValid(w, r, &req); err != nil {
			httpError(w, err)
			return
		}
		grant, err := h.svc.VerifyCode(r.Context(), req.Email, req.Code)
		if err != nil {
			httpError(w, err)
			return
		}
		writeData(w, http.StatusOK, grant)
	case "reset":
		var req domain.ResetPasswordRequest
		if err := decodeValid(w, r, &req); err != nil {
			httpError(w, err)
			return
		}
		if err := h.svc.Reset(r.Context(), req.ResetToken, req.NewPassword); err != nil {
			httpError(w, err)
			return
		}
		writeData(w, http.StatusOK, MessageData{Message: "password updated"})
	default:
		writeError(w, http.StatusBadRequest, domain.KindMalformed, "unknown action")
	}
}

func decodeValid(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := decode(w, r, v); err != nil {
		return err
	}
	return validate.Struct(v)
}
