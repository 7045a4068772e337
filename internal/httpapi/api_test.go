package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/niggl1/interfoneapp/internal/auth"
	"github.com/niggl1/interfoneapp/internal/calls"
	"github.com/niggl1/interfoneapp/internal/directory"
	"github.com/niggl1/interfoneapp/internal/reporting"
)

var (
	resident = auth.NewUser("user-resident", "Resident", "resident")
	neighbor = auth.NewUser("user-neighbor", "Neighbor", "resident")
)

// asIdentity stands in for the auth middleware.
func asIdentity(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("identity", id)
		c.Set("user_id", id.UserID)
		c.Set("role", id.Role)
	}
}

type fixture struct {
	api   *API
	store *calls.MemoryStore
	svc   *calls.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := calls.NewMemoryStore()
	svc := calls.NewService(calls.ServiceConfig{Store: store})
	t.Cleanup(svc.Close)

	dir := directory.NewMemoryDirectory(nil)
	dir.PutUnit(directory.Unit{
		Key:       "unit-101",
		Label:     "Apt 101",
		Residents: []directory.Resident{{UserID: "user-resident", Name: "Resident", Active: true}},
	})

	return &fixture{
		api:   New(nil, svc, dir, reporting.NewService(store)),
		store: store,
		svc:   svc,
	}
}

func (f *fixture) do(t *testing.T, id auth.Identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	group := router.Group("/v1", asIdentity(id))
	group.POST("/calls", f.api.CreateCall)
	group.GET("/calls", f.api.History)
	group.GET("/calls/active", f.api.ActiveCall)
	group.GET("/calls/:id", f.api.GetCall)
	group.POST("/calls/:id/answer", f.api.AnswerCall)
	group.POST("/calls/:id/reject", f.api.RejectCall)
	group.POST("/calls/:id/end", f.api.EndCall)
	group.GET("/admin/reports/calls", f.api.CallsReport)

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeCall(t *testing.T, rec *httptest.ResponseRecorder) calls.Call {
	t.Helper()
	var call calls.Call
	if err := json.Unmarshal(rec.Body.Bytes(), &call); err != nil {
		t.Fatalf("decode call: %v", err)
	}
	return call
}

func (f *fixture) createCall(t *testing.T, caller auth.Identity, body any) calls.Call {
	t.Helper()
	rec := f.do(t, caller, http.MethodPost, "/v1/calls", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create call: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeCall(t, rec)
}

func TestCreateCall_ByReceiverID(t *testing.T) {
	f := newFixture(t)

	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "video"})

	if call.Status != calls.StatusRinging {
		t.Fatalf("expected RINGING, got %s", call.Status)
	}
	if call.CallerID != "user-neighbor" || call.ReceiverID != "user-resident" {
		t.Fatalf("unexpected parties: %+v", call)
	}
	if call.Type != calls.TypeVideo {
		t.Fatalf("expected lowercase callType accepted, got %s", call.Type)
	}
}

func TestCreateCall_ByUnitKey(t *testing.T) {
	f := newFixture(t)

	call := f.createCall(t, neighbor, createCallRequest{UnitKey: "unit-101", CallType: "AUDIO"})
	if call.ReceiverID != "user-resident" {
		t.Fatalf("expected unit resolved, got %s", call.ReceiverID)
	}

	rec := f.do(t, neighbor, http.MethodPost, "/v1/calls", createCallRequest{UnitKey: "unit-404", CallType: "AUDIO"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown unit: expected 404, got %d", rec.Code)
	}
}

func TestCreateCall_InvalidBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, neighbor, http.MethodPost, "/v1/calls", map[string]string{"receiverId": "user-resident"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing callType: expected 400, got %d", rec.Code)
	}
}

func TestAnswerCall_ReceiverOnly(t *testing.T) {
	f := newFixture(t)
	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "VIDEO"})

	if rec := f.do(t, neighbor, http.MethodPost, "/v1/calls/"+call.ID+"/answer", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("caller answering: expected 403, got %d", rec.Code)
	}

	rec := f.do(t, resident, http.MethodPost, "/v1/calls/"+call.ID+"/answer", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receiver answering: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeCall(t, rec); got.Status != calls.StatusAnswered {
		t.Fatalf("expected ANSWERED, got %s", got.Status)
	}

	if rec := f.do(t, resident, http.MethodPost, "/v1/calls/"+call.ID+"/answer", nil); rec.Code != http.StatusConflict {
		t.Fatalf("double answer: expected 409, got %d", rec.Code)
	}
}

func TestRejectCall(t *testing.T) {
	f := newFixture(t)
	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "VIDEO"})

	rec := f.do(t, resident, http.MethodPost, "/v1/calls/"+call.ID+"/reject", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeCall(t, rec); got.Status != calls.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", got.Status)
	}
}

func TestEndCall_UnansweredBecomesMissed(t *testing.T) {
	f := newFixture(t)
	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "VIDEO"})

	rec := f.do(t, neighbor, http.MethodPost, "/v1/calls/"+call.ID+"/end", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeCall(t, rec)
	if got.Status != calls.StatusMissed {
		t.Fatalf("expected MISSED, got %s", got.Status)
	}
	if got.DurationSeconds != nil {
		t.Fatal("unanswered call must have no duration")
	}

	// Ending again is a no-op that returns the record.
	rec = f.do(t, neighbor, http.MethodPost, "/v1/calls/"+call.ID+"/end", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat end: expected 200, got %d", rec.Code)
	}
}

func TestCallOps_UnknownID(t *testing.T) {
	f := newFixture(t)
	for _, op := range []string{"answer", "reject", "end"} {
		rec := f.do(t, resident, http.MethodPost, "/v1/calls/00000000-0000-0000-0000-000000000000/"+op, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s unknown call: expected 404, got %d", op, rec.Code)
		}
	}
}

func TestGetCall_PartiesOnly(t *testing.T) {
	f := newFixture(t)
	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "VIDEO"})

	if rec := f.do(t, resident, http.MethodGet, "/v1/calls/"+call.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("party read: expected 200, got %d", rec.Code)
	}

	stranger := auth.NewUser("user-stranger", "Stranger", "resident")
	if rec := f.do(t, stranger, http.MethodGet, "/v1/calls/"+call.ID, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger read: expected 403, got %d", rec.Code)
	}
}

func TestActiveCall(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, resident, http.MethodGet, "/v1/calls/active", nil)
	var body struct {
		Active bool        `json:"active"`
		Call   *calls.Call `json:"call"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Active {
		t.Fatal("expected no active call")
	}

	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "VIDEO"})

	rec = f.do(t, resident, http.MethodGet, "/v1/calls/active", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Active || body.Call == nil || body.Call.ID != call.ID {
		t.Fatalf("expected active call %s, got %s", call.ID, rec.Body.String())
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "VIDEO"})
	f.do(t, resident, http.MethodPost, "/v1/calls/"+call.ID+"/reject", nil)

	rec := f.do(t, resident, http.MethodGet, "/v1/calls", nil)
	var body struct {
		Calls []calls.Call `json:"calls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Calls) != 1 || body.Calls[0].ID != call.ID {
		t.Fatalf("expected 1 record, got %s", rec.Body.String())
	}

	// A user with no calls gets an empty list, not null.
	rec = f.do(t, auth.NewUser("user-new", "New", "resident"), http.MethodGet, "/v1/calls", nil)
	if rec.Body.String() == `{"calls":null}` {
		t.Fatal("history must marshal as an empty array")
	}
}

func TestCallsReport(t *testing.T) {
	f := newFixture(t)
	call := f.createCall(t, neighbor, createCallRequest{ReceiverID: "user-resident", CallType: "VIDEO"})
	f.do(t, resident, http.MethodPost, "/v1/calls/"+call.ID+"/answer", nil)
	f.do(t, resident, http.MethodPost, "/v1/calls/"+call.ID+"/end", nil)

	from := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	to := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	rec := f.do(t, resident, http.MethodGet, "/v1/admin/reports/calls?from="+from+"&to="+to, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sum reporting.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Total != 1 || sum.Answered != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	if rec := f.do(t, resident, http.MethodGet, "/v1/admin/reports/calls?from=yesterday", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad window: expected 400, got %d", rec.Code)
	}
}
