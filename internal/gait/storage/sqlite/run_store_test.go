package sqlite

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gaitlab/stride.report/internal/gait"
)

func sampleRun(videoID, participant string, createdAt int64) *AnalysisRun {
	return &AnalysisRun{
		VideoID:       videoID,
		Participant:   participant,
		Quality:       string(gait.QualityOK),
		Direction:     string(gait.DirectionLeftToRight),
		StepMode:      string(gait.StepModeAnkleDist),
		FPS:           30,
		DurationSecs:  5,
		TotalFrames:   150,
		ValidFrames:   148,
		DetectionRate: 148.0 / 150,
		StepCount:     6,
		StrideCount:   3,

		ValidStrideCount: 3,
		FeaturesJSON:     json.RawMessage(`{"cadence_spm":66.7}`),
		ScoresJSON:       json.RawMessage(`{"score_recon":85}`),
		CreatedAt:        createdAt,
	}
}

func TestRunStore_InsertGetRoundTrip(t *testing.T) {
	database, cleanup := setupRunStoreTestDB(t)
	defer cleanup()
	store := NewRunStore(database)

	run := sampleRun("vid-1", "p01", 0)
	if err := store.Insert(run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if run.RunID == "" {
		t.Fatal("Insert did not assign a run ID")
	}
	if run.CreatedAt == 0 {
		t.Fatal("Insert did not assign a creation time")
	}

	got, err := store.Get(run.RunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VideoID != "vid-1" || got.Participant != "p01" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Quality != string(gait.QualityOK) {
		t.Errorf("quality = %q", got.Quality)
	}
	if got.ValidStrideCount != 3 || got.TotalFrames != 150 {
		t.Errorf("counts = %d/%d", got.ValidStrideCount, got.TotalFrames)
	}
	if string(got.FeaturesJSON) != `{"cadence_spm":66.7}` {
		t.Errorf("features json = %s", got.FeaturesJSON)
	}
	if got.CreatedAt != run.CreatedAt {
		t.Errorf("created_at = %d, want %d", got.CreatedAt, run.CreatedAt)
	}
}

func TestRunStore_GetMissing(t *testing.T) {
	database, cleanup := setupRunStoreTestDB(t)
	defer cleanup()
	store := NewRunStore(database)

	if _, err := store.Get("no-such-run"); err == nil {
		t.Error("expected an error for an unknown run ID")
	}
}

func TestRunStore_ListRecentNewestFirst(t *testing.T) {
	database, cleanup := setupRunStoreTestDB(t)
	defer cleanup()
	store := NewRunStore(database)

	for i, ts := range []int64{100, 300, 200} {
		run := sampleRun("vid-order", "p01", ts)
		run.RunID = []string{"a", "b", "c"}[i]
		if err := store.Insert(run); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	runs, err := store.ListRecent(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].RunID != "b" || runs[1].RunID != "c" || runs[2].RunID != "a" {
		t.Errorf("order = %s, %s, %s; want b, c, a", runs[0].RunID, runs[1].RunID, runs[2].RunID)
	}

	limited, err := store.ListRecent(2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored: got %d runs", len(limited))
	}
}

func TestRunStore_ListFilters(t *testing.T) {
	database, cleanup := setupRunStoreTestDB(t)
	defer cleanup()
	store := NewRunStore(database)

	if err := store.Insert(sampleRun("vid-a", "p01", 1)); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(sampleRun("vid-a", "p02", 2)); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(sampleRun("vid-b", "p01", 3)); err != nil {
		t.Fatal(err)
	}

	byVideo, err := store.ListByVideo("vid-a")
	if err != nil {
		t.Fatalf("list by video: %v", err)
	}
	if len(byVideo) != 2 {
		t.Errorf("vid-a runs = %d, want 2", len(byVideo))
	}

	byParticipant, err := store.ListByParticipant("p01")
	if err != nil {
		t.Fatalf("list by participant: %v", err)
	}
	if len(byParticipant) != 2 {
		t.Errorf("p01 runs = %d, want 2", len(byParticipant))
	}
	for _, r := range byParticipant {
		if r.Participant != "p01" {
			t.Errorf("filter leaked run for %q", r.Participant)
		}
	}
}

func TestRunStore_Delete(t *testing.T) {
	database, cleanup := setupRunStoreTestDB(t)
	defer cleanup()
	store := NewRunStore(database)

	run := sampleRun("vid-del", "p01", 0)
	if err := store.Insert(run); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(run.RunID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(run.RunID); err == nil {
		t.Error("run still present after delete")
	}
	if err := store.Delete(run.RunID); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("second delete error = %v, want not found", err)
	}
}

func TestRunFromResult(t *testing.T) {
	seq := gait.SyntheticWalkSequence("vid-run", gait.DefaultSynthWalkParams())
	params := gait.DefaultAnalysisParams()
	res := gait.NewAnalyzer(params).Analyze(seq)
	if res.Quality != gait.QualityOK {
		t.Fatalf("quality = %s (%s)", res.Quality, res.Reason)
	}

	run, err := RunFromResult(res, "p07", params)
	if err != nil {
		t.Fatalf("RunFromResult: %v", err)
	}
	if run.RunID != res.RunID || run.VideoID != "vid-run" {
		t.Errorf("identity mismatch: %+v", run)
	}
	if run.Participant != "p07" {
		t.Errorf("participant = %q", run.Participant)
	}
	if run.StepCount != len(res.Steps) || run.StrideCount != len(res.Strides) {
		t.Errorf("counts = %d/%d", run.StepCount, run.StrideCount)
	}

	// The persisted documents are canonical JSON: no NaN may survive even
	// on a degraded result.
	var feats map[string]any
	if err := json.Unmarshal(run.FeaturesJSON, &feats); err != nil {
		t.Fatalf("features json invalid: %v", err)
	}
	degraded := gait.NewAnalyzer(params).Analyze(gait.SyntheticStillSequence("still", 150, 30))
	degradedRun, err := RunFromResult(degraded, "", params)
	if err != nil {
		t.Fatalf("RunFromResult degraded: %v", err)
	}
	if strings.Contains(string(degradedRun.FeaturesJSON), "NaN") ||
		strings.Contains(string(degradedRun.ScoresJSON), "NaN") {
		t.Error("sentinel leaked into a persisted document")
	}

	// A freshly converted run persists cleanly.
	database, cleanup := setupRunStoreTestDB(t)
	defer cleanup()
	store := NewRunStore(database)
	if err := store.Insert(run); err != nil {
		t.Fatalf("insert converted run: %v", err)
	}
}
