package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/engine"
	"github.com/friedgreenrepos/biblioteca/httpapi"
	"github.com/friedgreenrepos/biblioteca/memorystore"
	"github.com/friedgreenrepos/biblioteca/testutil"
)

type fixture struct {
	store  *memorystore.MemoryStore
	server *httptest.Server
	member core.Member
	book   core.Book
}

func givenServer(t *testing.T) fixture {
	t.Helper()

	store := memorystore.NewMemoryStore()

	e, err := engine.NewEngine(store, engine.WithClock(testutil.FixedClock(testutil.Day(0))))
	require.NoError(t, err)

	server := httptest.NewServer(httpapi.NewHandler(e, store).Routes())
	t.Cleanup(server.Close)

	member := core.Member{ID: uuid.New(), Name: "Ada Lovelace"}
	book := core.Book{ID: uuid.New(), Title: "On Computable Numbers"}
	require.NoError(t, store.InsertMember(context.Background(), member))
	require.NoError(t, store.InsertBook(context.Background(), book))

	return fixture{store: store, server: server, member: member, book: book}
}

func (f fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	resp, err := http.Post(f.server.URL+path, "application/json", &payload)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

type loanBody struct {
	ID         uuid.UUID `json:"id"`
	State      string    `json:"state"`
	DueAt      *string   `json:"due_at"`
	ReturnedAt *string   `json:"returned_at"`
}

func Test_LoanLifecycle_OverHTTP(t *testing.T) {
	f := givenServer(t)

	resp := f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   f.book.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	loan := decodeBody[loanBody](t, resp)
	assert.Equal(t, "requested", loan.State)
	assert.Nil(t, loan.DueAt)

	resp = f.post(t, "/loans/"+loan.ID.String()+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	approved := decodeBody[loanBody](t, resp)
	assert.Equal(t, "active", approved.State)
	assert.NotNil(t, approved.DueAt)

	resp = f.post(t, "/loans/"+loan.ID.String()+"/return", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	returned := decodeBody[loanBody](t, resp)
	assert.Equal(t, "closed", returned.State)
	assert.NotNil(t, returned.ReturnedAt)
}

func Test_RejectLoan_Returns204AndFreesThePair(t *testing.T) {
	f := givenServer(t)

	resp := f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   f.book.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	loan := decodeBody[loanBody](t, resp)

	resp = f.post(t, "/loans/"+loan.ID.String()+"/reject", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   f.book.ID.String(),
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func Test_StatusMapping(t *testing.T) {
	f := givenServer(t)

	// duplicate open request for the same pair -> 409
	resp := f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   f.book.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   f.book.ID.String(),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// unknown loan -> 404
	resp = f.post(t, "/loans/"+uuid.NewString()+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// malformed id -> 400
	resp = f.post(t, "/loans/not-a-uuid/approve", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// suspended member -> 403 on the next request
	resp = f.post(t, "/members/"+f.member.ID.String()+"/reports", map[string]any{
		"kind":    "damage",
		"suspend": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	otherBook := core.Book{ID: uuid.New(), Title: "another"}
	require.NoError(t, f.store.InsertBook(context.Background(), otherBook))

	resp = f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   otherBook.ID.String(),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func Test_ReportMember_RejectsUnknownKind(t *testing.T) {
	f := givenServer(t)

	resp := f.post(t, "/members/"+f.member.ID.String()+"/reports", map[string]any{
		"kind": "nonsense",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_Reconcile_ReportsDriftOverHTTP(t *testing.T) {
	f := givenServer(t)

	resp := f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   f.book.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	damaged, err := f.store.GetMember(context.Background(), f.member.ID)
	require.NoError(t, err)
	damaged.PendingRequests = 9
	require.NoError(t, f.store.InsertMember(context.Background(), damaged))

	resp = f.post(t, "/members/"+f.member.ID.String()+"/reconcile?repair=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	audit := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, audit["drifted"])
	assert.Equal(t, true, audit["repaired"])

	repaired, err := f.store.GetMember(context.Background(), f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired.PendingRequests)
}

func Test_ListLoans_ReturnsTheMembersHistory(t *testing.T) {
	f := givenServer(t)

	resp := f.post(t, "/loans/requests", map[string]string{
		"member_id": f.member.ID.String(),
		"book_id":   f.book.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	listResp, err := http.Get(f.server.URL + "/members/" + f.member.ID.String() + "/loans")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listResp.Body.Close() })
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	loans := decodeBody[[]loanBody](t, listResp)
	require.Len(t, loans, 1)
	assert.Equal(t, "requested", loans[0].State)
}
