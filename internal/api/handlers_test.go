package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/migsilva89/markmind/internal/bookmarks"
	"github.com/migsilva89/markmind/internal/session"
	"github.com/migsilva89/markmind/internal/storage"
)

type mapKV map[string]string

func (m mapKV) GetKV(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}
func (m mapKV) SetKV(key, value string) error { m[key] = value; return nil }
func (m mapKV) DeleteKV(key string) error     { delete(m, key); return nil }

// captureRunner records the payload and signals when invoked.
type captureRunner struct {
	got chan session.StartPayload
}

func newCaptureRunner() *captureRunner {
	return &captureRunner{got: make(chan session.StartPayload, 1)}
}

func (c *captureRunner) Organize(ctx context.Context, p session.StartPayload) {
	c.got <- p
}

func testDeps() (Deps, *captureRunner, *session.Store) {
	store := session.NewStore(mapKV{})
	runner := newCaptureRunner()
	return Deps{
		Sessions: store,
		Runner:   runner,
		Events:   NewBroadcaster(),
		Token:    "test-token",
	}, runner, store
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func TestHealthNoAuth(t *testing.T) {
	deps, _, _ := testDeps()
	h := NewHandler(deps)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", rec.Code)
	}
}

func TestOrganizeRoutesRequireAuth(t *testing.T) {
	deps, _, _ := testDeps()
	h := NewHandler(deps)

	targets := []struct {
		method, path string
	}{
		{"POST", "/organize/start"},
		{"GET", "/organize/status"},
		{"GET", "/organize/events"},
	}
	for _, tgt := range targets {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tgt.method, tgt.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", tgt.method, tgt.path, rec.Code)
		}

		rec = httptest.NewRecorder()
		req := httptest.NewRequest(tgt.method, tgt.path, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token = %d, want 401", tgt.method, tgt.path, rec.Code)
		}
	}
}

func TestOrganizeStart(t *testing.T) {
	deps, runner, _ := testDeps()
	h := NewHandler(deps)

	payload := session.StartPayload{
		ServiceID: "google",
		Bookmarks: []bookmarks.Compact{{ID: "b1", Title: "Go", URL: "https://go.dev"}},
	}
	body, _ := json.Marshal(payload)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest("POST", "/organize/start", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start = %d, want 202: %s", rec.Code, rec.Body)
	}

	select {
	case got := <-runner.got:
		if got.ServiceID != "google" || len(got.Bookmarks) != 1 {
			t.Errorf("runner payload = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("runner not invoked")
	}
}

func TestOrganizeStartValidation(t *testing.T) {
	deps, runner, _ := testDeps()
	h := NewHandler(deps)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "{nope"},
		{"missing service", `{"bookmarks":[{"id":"b1"}]}`},
		{"empty bookmarks", `{"serviceId":"google","bookmarks":[]}`},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, authedRequest("POST", "/organize/start", []byte(c.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", c.name, rec.Code)
		}
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
			t.Errorf("%s: error body not JSON: %v", c.name, err)
		} else if errResp.Error.Type != "invalid_request_error" {
			t.Errorf("%s: error type = %q", c.name, errResp.Error.Type)
		}
	}

	select {
	case <-runner.got:
		t.Error("runner invoked for invalid request")
	default:
	}
}

func TestOrganizeStatusEmpty(t *testing.T) {
	deps, _, _ := testDeps()
	h := NewHandler(deps)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest("GET", "/organize/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "null" {
		t.Errorf("empty status body = %q, want null", got)
	}
}

func TestOrganizeStatus(t *testing.T) {
	deps, _, store := testDeps()
	h := NewHandler(deps)

	sess := session.New()
	sess.Status = session.StatusOrganizing
	sess.ServiceID = "google"
	if err := store.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest("GET", "/organize/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got session.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if got.Status != session.StatusOrganizing || got.ServiceID != "google" {
		t.Errorf("status body = %+v", got)
	}
}

func TestOrganizeEventsStream(t *testing.T) {
	deps, _, _ := testDeps()
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/organize/events", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	// Give the handler a moment to register its subscription.
	time.Sleep(50 * time.Millisecond)
	deps.Events.OrganizeError("boom")

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	if eventLine != "event: "+EventOrganizeError {
		t.Errorf("event line = %q", eventLine)
	}
	if !strings.Contains(dataLine, "boom") {
		t.Errorf("data line = %q", dataLine)
	}
}

func TestTouchMiddleware(t *testing.T) {
	deps, _, _ := testDeps()
	touches := 0
	deps.Touch = func() { touches++ }
	h := NewHandler(deps)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if touches != 1 {
		t.Errorf("touches = %d, want 1", touches)
	}
}
