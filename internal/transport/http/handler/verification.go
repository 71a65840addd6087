package handler

import (
	"net/http"

	"github.com/fiscus-api/internal/application/verification"
	"github.com/fiscus-api/internal/domain"
)

// VerificationHandler handles email verification and the app PIN for the
// signed-in user.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.SendEmailCode(r.Context(), p); err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, MessageData{Message: "code sent"})
}

func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.VerifyCodeRequest
	if err := decode(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.VerifyEmailCode(r.Context(), p.UID, req.Code); err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, MessageData{Message: "email verified"})
}

func (h *VerificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Status(r.Context(), p.UID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, st)
}

func (h *VerificationHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.PinRequest
	if err := decode(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.SetPin(r.Context(), p.UID, req.Pin); err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, MessageData{Message: "pin set"})
}

func (h *VerificationHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.PinRequest
	if err := decode(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.VerifyPin(r.Context(), p.UID, req.Pin); err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, MessageData{Message: "pin ok"})
}
