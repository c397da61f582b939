package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// retryAfterHint is the Retry-After value sent with lock contention
// responses; losing a NOWAIT lock means the competing transaction is
// in-flight right now, so an immediate retry usually succeeds.
const retryAfterHint = "1"

type loanResponse struct {
	ID          uuid.UUID  `json:"id"`
	MemberID    uuid.UUID  `json:"member_id"`
	BookID      uuid.UUID  `json:"book_id"`
	State       string     `json:"state"`
	RequestedAt time.Time  `json:"requested_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
}

func loanResponseFrom(loan core.Loan) loanResponse {
	return loanResponse{
		ID:          loan.ID,
		MemberID:    loan.MemberID,
		BookID:      loan.BookID,
		State:       loan.State.String(),
		RequestedAt: loan.RequestedAt,
		StartedAt:   timePtr(loan.StartedAt),
		DueAt:       timePtr(loan.DueAt),
		ReturnedAt:  timePtr(loan.ReturnedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeEngineError maps the engine's typed errors onto HTTP status codes:
// suspension is a 403, unknown entities are 404, business rejections and
// lock contention are 409 (the latter with a retry hint), anything else is
// a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrMemberSuspended):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrMemberNotFound),
		errors.Is(err, storage.ErrBookNotFound),
		errors.Is(err, storage.ErrLoanNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrResourceBusy):
		w.Header().Set("Retry-After", retryAfterHint)
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrQuotaExceeded),
		errors.Is(err, core.ErrLoanAlreadyOpen),
		errors.Is(err, core.ErrLoanAlreadyActive),
		errors.Is(err, core.ErrNoOpenLoan),
		errors.Is(err, core.ErrNotYetDelivered):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
