// Package httpapi exposes the loan lifecycle engine as a small JSON API. It
// is a thin facade: one route per engine operation, typed engine errors
// mapped to status codes, no business logic of its own.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/engine"
	"github.com/friedgreenrepos/biblioteca/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler serves the loan lifecycle routes.
type Handler struct {
	engine *engine.Engine
	store  storage.Store
}

// NewHandler creates a handler around an engine and the store backing it; the
// store is only used for read-only listings.
func NewHandler(e *engine.Engine, store storage.Store) *Handler {
	return &Handler{engine: e, store: store}
}

// Routes mounts all loan lifecycle routes on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/loans/requests", h.requestLoan)
	r.Post("/loans/{loanID}/approve", h.approveLoan)
	r.Post("/loans/{loanID}/reject", h.rejectLoan)
	r.Post("/loans/{loanID}/return", h.returnLoan)
	r.Post("/members/{memberID}/reports", h.reportMember)
	r.Post("/members/{memberID}/reconcile", h.reconcileCounters)
	r.Get("/members/{memberID}/loans", h.listLoans)

	return r
}

type requestLoanRequest struct {
	MemberID uuid.UUID `json:"member_id"`
	BookID   uuid.UUID `json:"book_id"`
}

func (h *Handler) requestLoan(w http.ResponseWriter, r *http.Request) {
	var body requestLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := h.engine.RequestLoan(r.Context(), body.MemberID, body.BookID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, loanResponseFrom(loan))
}

func (h *Handler) approveLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanID")
	if !ok {
		return
	}

	loan, err := h.engine.ApproveLoan(r.Context(), loanID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loanResponseFrom(loan))
}

func (h *Handler) rejectLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanID")
	if !ok {
		return
	}

	if err := h.engine.RejectLoan(r.Context(), loanID); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) returnLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanID")
	if !ok {
		return
	}

	loan, err := h.engine.ReturnLoan(r.Context(), loanID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loanResponseFrom(loan))
}

type reportMemberRequest struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Suspend     bool   `json:"suspend"`
}

type reportResponse struct {
	ID          uuid.UUID `json:"id"`
	MemberID    uuid.UUID `json:"member_id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) reportMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathUUID(w, r, "memberID")
	if !ok {
		return
	}

	var body reportMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := parseReportKind(body.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.engine.ReportMember(r.Context(), memberID, kind, body.Description, body.Suspend)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reportResponse{
		ID:          report.ID,
		MemberID:    report.MemberID,
		Kind:        report.Kind.String(),
		Description: report.Description,
		CreatedAt:   report.CreatedAt,
	})
}

type auditResponse struct {
	MemberID               uuid.UUID `json:"member_id"`
	StoredPendingRequests  int       `json:"stored_pending_requests"`
	StoredActiveLoans      int       `json:"stored_active_loans"`
	CountedPendingRequests int       `json:"counted_pending_requests"`
	CountedActiveLoans     int       `json:"counted_active_loans"`
	Drifted                bool      `json:"drifted"`
	Repaired               bool      `json:"repaired"`
}

func (h *Handler) reconcileCounters(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathUUID(w, r, "memberID")
	if !ok {
		return
	}

	repair := r.URL.Query().Get("repair") == "true"

	audit, err := h.engine.ReconcileMemberCounters(r.Context(), memberID, repair)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, auditResponse{
		MemberID:               audit.MemberID,
		StoredPendingRequests:  audit.StoredPendingRequests,
		StoredActiveLoans:      audit.StoredActiveLoans,
		CountedPendingRequests: audit.CountedPendingRequests,
		CountedActiveLoans:     audit.CountedActiveLoans,
		Drifted:                audit.Drifted(),
		Repaired:               audit.Repaired,
	})
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathUUID(w, r, "memberID")
	if !ok {
		return
	}

	loans, err := h.store.ListLoansByMember(r.Context(), memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	responses := make([]loanResponse, 0, len(loans))
	for _, loan := range loans {
		responses = append(responses, loanResponseFrom(loan))
	}

	writeJSON(w, http.StatusOK, responses)
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return uuid.UUID{}, false
	}

	return id, true
}

func parseReportKind(kind string) (core.ReportKind, error) {
	switch kind {
	case "damage":
		return core.ReportDamage, nil
	case "late":
		return core.ReportLate, nil
	case "other":
		return core.ReportOther, nil
	}

	// fall back to the single-letter storage codes
	return core.ReportKindFromCode(kind)
}
