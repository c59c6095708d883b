package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calebmoore/rewind/internal/archive"
	"github.com/calebmoore/rewind/internal/capture"
	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/session"
)

var testStart = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// sourceTracker hands out a fresh scripted source per open and remembers
// the most recent one so tests can drive it.
type sourceTracker struct {
	mu   sync.Mutex
	last *capture.ScriptedSource
}

func (s *sourceTracker) open(ctx context.Context, opts *capture.Options) (capture.Source, error) {
	src := capture.NewScriptedSource()
	s.mu.Lock()
	s.last = src
	s.mu.Unlock()
	return src, nil
}

func (s *sourceTracker) source() *capture.ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type testEnv struct {
	srv     *http.Server
	coord   *session.Coordinator
	db      *sql.DB
	baseDir string
	tracker *sourceTracker
	clock   *session.FakeClock
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	baseDir := t.TempDir()
	database, err := archive.Init(baseDir)
	if err != nil {
		t.Fatalf("archive.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	tracker := &sourceTracker{}
	clock := session.NewFakeClock(testStart)
	coord := session.NewCoordinator(cfg, tracker.open, clock)
	t.Cleanup(func() { _ = coord.StopBackground() })

	srv := NewServer(coord, database, cfg, baseDir, "test", "127.0.0.1", 0)

	return &testEnv{
		srv:     srv,
		coord:   coord,
		db:      database,
		baseDir: baseDir,
		tracker: tracker,
		clock:   clock,
	}
}

func (env *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, req)
	return rec
}

// captureClip starts the recorder, feeds it, and captures a clip. Returns
// the clip ID from the redirect location.
func captureClip(t *testing.T, env *testEnv) string {
	t.Helper()

	if rec := env.post(t, "/recorder/start", nil); rec.Code != http.StatusSeeOther {
		t.Fatalf("recorder/start status = %d: %s", rec.Code, rec.Body.String())
	}
	src := env.tracker.source()
	src.Emit([]byte("frame1"), env.clock.Now())
	src.Emit([]byte("frame2"), env.clock.Now().Add(time.Second))

	rec := env.post(t, "/recorder/capture", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("recorder/capture status = %d: %s", rec.Code, rec.Body.String())
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/clips/") {
		t.Fatalf("capture redirect = %q", loc)
	}
	return strings.TrimPrefix(loc, "/clips/")
}

func TestRootRedirectsToStatus(t *testing.T) {
	env := setupTest(t)

	rec := env.get(t, "/")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/status" {
		t.Errorf("Location = %q, want /status", loc)
	}
}

func TestStatusPage(t *testing.T) {
	env := setupTest(t)

	rec := env.get(t, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Rolling buffer") || !strings.Contains(body, "Manual recorder") {
		t.Error("status page missing recorder sections")
	}
	if !strings.Contains(body, "idle") {
		t.Error("status page should show idle state")
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupTest(t)

	rec := env.get(t, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snap session.CombinedSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.Background.State != session.StateIdle || snap.Manual.State != session.StateIdle {
		t.Errorf("snapshot = %+v, want both idle", snap)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := setupTest(t)

	rec := env.get(t, "/status")
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy missing")
	}
}

func TestCaptureFlow(t *testing.T) {
	env := setupTest(t)

	id := captureClip(t, env)

	rec := env.get(t, "/clips/"+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("clip detail status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "screen-recording-") {
		t.Error("detail page missing filename")
	}

	rec = env.get(t, "/clips")
	if rec.Code != http.StatusOK {
		t.Fatalf("clips list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), id) {
		t.Error("clip missing from list page")
	}
}

func TestCaptureEmptyBuffer(t *testing.T) {
	env := setupTest(t)

	rec := env.post(t, "/recorder/capture", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for empty buffer", rec.Code)
	}
}

func TestClipDownload(t *testing.T) {
	env := setupTest(t)
	id := captureClip(t, env)

	rec := env.get(t, "/clips/"+id+"/download")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/webm" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "frame1frame2" {
		t.Errorf("download body = %q", rec.Body.String())
	}
}

func TestClipNoteRendered(t *testing.T) {
	env := setupTest(t)
	id := captureClip(t, env)

	rec := env.post(t, "/clips/"+id+"/note", url.Values{"note": {"## Demo take"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("note status = %d", rec.Code)
	}

	rec = env.get(t, "/clips/"+id)
	if !strings.Contains(rec.Body.String(), "<h2>Demo take</h2>") {
		t.Error("markdown note not rendered to HTML")
	}
}

func TestClipDelete(t *testing.T) {
	env := setupTest(t)
	id := captureClip(t, env)

	rec := env.post(t, "/clips/"+id+"/delete", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = env.get(t, "/clips/"+id)
	if rec.Code != http.StatusNotFound {
		t.Errorf("detail after delete status = %d, want 404", rec.Code)
	}
}

func TestClipDetailNotFoundJSON(t *testing.T) {
	env := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/clips/missing", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var payload map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON error: %v", err)
	}
	if payload["error"]["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", payload["error"]["code"])
	}
}

func TestClipsListBadKind(t *testing.T) {
	env := setupTest(t)

	rec := env.get(t, "/clips?kind=screenshot")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSetWindowEndpoint(t *testing.T) {
	env := setupTest(t)

	rec := env.post(t, "/recorder/window", url.Values{"minutes": {"3"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("window status = %d", rec.Code)
	}
	if got := env.coord.Status().Background.WindowMinutes; got != 3 {
		t.Errorf("WindowMinutes = %d, want 3", got)
	}

	rec = env.post(t, "/recorder/window", url.Values{"minutes": {"7"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid tier status = %d, want 400", rec.Code)
	}
}

func TestRecordFlow(t *testing.T) {
	env := setupTest(t)

	if rec := env.post(t, "/record/start", nil); rec.Code != http.StatusSeeOther {
		t.Fatalf("record/start status = %d", rec.Code)
	}
	src := env.tracker.source()
	src.Emit([]byte("take"), env.clock.Now())

	rec := env.post(t, "/record/stop", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("record/stop status = %d: %s", rec.Code, rec.Body.String())
	}

	id := strings.TrimPrefix(rec.Header().Get("Location"), "/clips/")
	clip, err := archive.GetByID(env.db, id)
	if err != nil {
		t.Fatalf("saved clip missing: %v", err)
	}
	if clip.Kind != archive.KindRecording {
		t.Errorf("Kind = %q, want recording", clip.Kind)
	}
}

func TestStaticServed(t *testing.T) {
	env := setupTest(t)

	rec := env.get(t, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("static status = %d", rec.Code)
	}
}
