package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fiscus-api/internal/application/export"
	"github.com/fiscus-api/internal/application/transaction"
	"github.com/fiscus-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// TransactionHandler handles the ledger and its sync feed.
type TransactionHandler struct {
	svc     transaction.Service
	exports export.Service
}

func NewTransactionHandler(svc transaction.Service, exports export.Service) *TransactionHandler {
	return &TransactionHandler{svc: svc, exports: exports}
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	txs, err := h.svc.ListActive(r.Context(), p.UID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, txs)
}

// Updated serves the incremental sync feed. A missing since starts from zero.
func (h *TransactionHandler) Updated(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpError(w, fmt.Errorf("since %q: %w", raw, domain.ErrMalformed))
			return
		}
		since = v
	}
	cs, err := h.svc.ListSince(r.Context(), p.UID, since)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, cs)
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in domain.TransactionInput
	if err := decode(w, r, &in); err != nil {
		httpError(w, err)
		return
	}
	tx, err := h.svc.Create(r.Context(), p.UID, in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusCreated, tx)
}

// Update takes the id from the path; an id in the body is ignored.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in domain.TransactionInput
	if err := decode(w, r, &in); err != nil {
		httpError(w, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	tx, err := h.svc.Update(r.Context(), p.UID, in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	tx, err := h.svc.SoftDelete(r.Context(), p.UID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	res, err := h.exports.Export(r.Context(), p.UID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, res)
}
