package http

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"mdac/internal/config"
	"mdac/internal/model"
	"mdac/internal/services"
	"mdac/internal/store"
)

// fakeJobService records calls and returns scripted results.
type fakeJobService struct {
	submitted  []string
	pauseToken string
	waitOut    *model.JobOutput
	resumed    map[string]bool
}

func (f *fakeJobService) SubmitRegister(ctx context.Context, in model.RegisterInput, opts services.SubmitOptions) (store.Job, error) {
	f.submitted = append(f.submitted, "register:"+in.Passport)
	job := store.Job{ID: uuid.New(), Type: "register", Status: "pending", Passport: in.Passport}
	if opts.Pause {
		job.PauseToken.Valid = true
		job.PauseToken.String = f.pauseToken
	}
	return job, nil
}

func (f *fakeJobService) SubmitRetrieve(ctx context.Context, in model.RetrieveInput, record *model.RecordFlags) (store.Job, error) {
	f.submitted = append(f.submitted, "retrieve:"+in.Passport)
	return store.Job{ID: uuid.New(), Type: "retrieve", Status: "pending", Passport: in.Passport}, nil
}

func (f *fakeJobService) WaitForJob(ctx context.Context, id uuid.UUID, timeout time.Duration) (model.JobOutput, bool) {
	if f.waitOut == nil {
		return model.JobOutput{}, false
	}
	return *f.waitOut, true
}

func (f *fakeJobService) Resume(token string) bool {
	return f.resumed[token]
}

func (f *fakeJobService) ExecuteRegisterJob(ctx context.Context, job store.Job) {}
func (f *fakeJobService) ExecuteRetrieveJob(ctx context.Context, job store.Job) {}

func testServer(f *fakeJobService) *Server {
	cfg := &config.Config{}
	cfg.Worker.SyncJobWaitTimeoutMs = 1000
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, &store.Store{}, f, nil, logger)
}

func TestRegisterValidation(t *testing.T) {
	srv := testServer(&fakeJobService{})

	req := httptest.NewRequest("POST", "/v1/register", strings.NewReader(`{"passport":"AB123456"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Code != "BAD_REQUEST" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}

func TestRegisterAsync(t *testing.T) {
	f := &fakeJobService{}
	srv := testServer(f)

	payload := `{
		"passport": "AB123456",
		"nationality": "BGD",
		"fullName": "RAHMAN KARIM",
		"arrivalDate": "2026-09-02",
		"departureDate": "2026-09-09"
	}`
	req := httptest.NewRequest("POST", "/v1/register", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var body JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.ID == "" || body.Status != "pending" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if len(f.submitted) != 1 || f.submitted[0] != "register:AB123456" {
		t.Fatalf("service not called: %v", f.submitted)
	}
}

func TestRegisterSyncReturnsOutput(t *testing.T) {
	f := &fakeJobService{
		waitOut: &model.JobOutput{
			Status:       "succeeded",
			Passport:     "AB123456",
			Confirmation: &model.Confirmation{Pin: "PIN123"},
		},
	}
	srv := testServer(f)

	payload := `{
		"passport": "AB123456",
		"nationality": "BGD",
		"fullName": "RAHMAN KARIM",
		"arrivalDate": "2026-09-02",
		"departureDate": "2026-09-09",
		"sync": true
	}`
	req := httptest.NewRequest("POST", "/v1/register", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req, 5000)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "succeeded" || body.Data == nil || body.Data.Confirmation.Pin != "PIN123" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}

func TestRetrieveValidation(t *testing.T) {
	srv := testServer(&fakeJobService{})

	req := httptest.NewRequest("POST", "/v1/retrieve", strings.NewReader(`{"passport":"AB123456","nationality":"BGD"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for missing pin, got %d", resp.StatusCode)
	}
}

func TestResume(t *testing.T) {
	f := &fakeJobService{resumed: map[string]bool{"tok-1": true}}
	srv := testServer(f)

	resp, err := srv.App().Test(httptest.NewRequest("POST", "/v1/resume/tok-1", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = srv.App().Test(httptest.NewRequest("POST", "/v1/resume/unknown", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown token, got %d", resp.StatusCode)
	}
}

func TestHealthzShallow(t *testing.T) {
	srv := testServer(&fakeJobService{})

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// stubDriver backs deep-health tests with a database that answers
// every query with a single count row.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return stubStmt{}, nil }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("unsupported") }

type stubStmt struct{}

func (stubStmt) Close() error  { return nil }
func (stubStmt) NumInput() int { return 0 }
func (stubStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}
func (stubStmt) Query([]driver.Value) (driver.Rows, error) { return &stubRows{}, nil }

type stubRows struct{ done bool }

func (r *stubRows) Columns() []string { return []string{"count"} }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = int64(3)
	return nil
}

func init() { sql.Register("healthstub", stubDriver{}) }

func TestHealthzDeepReportsQueueDepth(t *testing.T) {
	db, err := sql.Open("healthstub", "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(cfg, store.New(db), &fakeJobService{}, nil, logger)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/healthz?deep=true", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["db"] != "ok" || body["redis"] != "disabled" {
		t.Fatalf("unexpected health payload: %+v", body)
	}
	queue, ok := body["queue"].(map[string]any)
	if !ok || queue["pending"] != float64(3) {
		t.Fatalf("queue depth missing from deep health: %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(&fakeJobService{})

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "mdac_http_requests_total") {
		t.Fatal("metrics output missing request counters")
	}
}
