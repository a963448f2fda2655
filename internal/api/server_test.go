package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaitlab/stride.report/internal/db"
	"github.com/gaitlab/stride.report/internal/gait"
	storage "github.com/gaitlab/stride.report/internal/gait/storage/sqlite"
)

func setupTestServer(t *testing.T) (*httptest.Server, *storage.RunStore) {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := database.MigrateUp(); err != nil {
		database.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := storage.NewRunStore(database.DB)
	ts := httptest.NewServer(LoggingMiddleware(NewServer(store).ServeMux()))
	t.Cleanup(ts.Close)
	return ts, store
}

func insertTestRun(t *testing.T, store *storage.RunStore, videoID, participant string) *storage.AnalysisRun {
	t.Helper()
	run := &storage.AnalysisRun{
		VideoID:     videoID,
		Participant: participant,
		Quality:     string(gait.QualityOK),
		FPS:         30,
		TotalFrames: 150,
	}
	if err := store.Insert(run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return run
}

func TestHealthz(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status body = %q", body["status"])
	}
}

func TestListRuns(t *testing.T) {
	ts, store := setupTestServer(t)
	insertTestRun(t, store, "vid-1", "p01")
	insertTestRun(t, store, "vid-2", "p02")

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET /api/runs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var runs []*storage.AnalysisRun
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestListRuns_EmptyIsJSONArray(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var runs []*storage.AnalysisRun
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if runs == nil {
		t.Error("empty listing must decode as [], not null")
	}
}

func TestListRuns_Filters(t *testing.T) {
	ts, store := setupTestServer(t)
	insertTestRun(t, store, "vid-1", "p01")
	insertTestRun(t, store, "vid-1", "p02")
	insertTestRun(t, store, "vid-2", "p01")

	cases := []struct {
		query string
		want  int
	}{
		{"?video_id=vid-1", 2},
		{"?participant=p01", 2},
		{"?video_id=vid-2", 1},
		{"?video_id=absent", 0},
	}
	for _, tc := range cases {
		resp, err := http.Get(ts.URL + "/api/runs" + tc.query)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.query, err)
		}
		var runs []*storage.AnalysisRun
		if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
			t.Fatalf("decode %s: %v", tc.query, err)
		}
		resp.Body.Close()
		if len(runs) != tc.want {
			t.Errorf("%s returned %d runs, want %d", tc.query, len(runs), tc.want)
		}
	}
}

func TestListRuns_InvalidLimit(t *testing.T) {
	ts, _ := setupTestServer(t)
	for _, q := range []string{"?limit=0", "?limit=-5", "?limit=9999", "?limit=abc"} {
		resp, err := http.Get(ts.URL + "/api/runs" + q)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestGetRun(t *testing.T) {
	ts, store := setupTestServer(t)
	run := insertTestRun(t, store, "vid-get", "p01")

	resp, err := http.Get(ts.URL + "/api/runs/" + run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got storage.AnalysisRun
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != run.RunID || got.VideoID != "vid-get" {
		t.Errorf("got %+v", got)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/runs/no-such-run")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Error("error body missing")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := setupTestServer(t)

	for _, path := range []string{"/api/runs", "/api/runs/some-id", "/debug/scores"} {
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST %s status = %d, want 405", path, resp.StatusCode)
		}
	}
}

func TestScoreChart(t *testing.T) {
	ts, store := setupTestServer(t)
	insertTestRun(t, store, "vid-chart", "p01")

	resp, err := http.Get(ts.URL + "/debug/scores")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q, want HTML", ct)
	}
}
