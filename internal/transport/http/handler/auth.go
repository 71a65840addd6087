package handler

import (
	"net/http"

	"github.com/fiscus-api/internal/application/identity"
	"github.com/fiscus-api/internal/domain"
)

// AuthHandler handles account creation and login.
type AuthHandler struct {
	svc identity.Service
}

func NewAuthHandler(svc identity.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := decode(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	u, bearer, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusCreated, AuthData{Bearer: bearer, User: u})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decode(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	u, bearer, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, AuthData{Bearer: bearer, User: u})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, p)
}
