package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaitlab/stride.report/internal/gait"
)

// AnalysisRun is a persisted gait analysis run: the outcome summary plus the
// feature vector, scores and parameter snapshot as JSON documents.
type AnalysisRun struct {
	RunID            string          `json:"run_id"`
	VideoID          string          `json:"video_id"`
	Participant      string          `json:"participant,omitempty"`
	Quality          string          `json:"quality"`
	Reason           string          `json:"reason,omitempty"`
	Direction        string          `json:"direction,omitempty"`
	Flipped          bool            `json:"flipped"`
	StepMode         string          `json:"step_mode,omitempty"`
	FPS              float64         `json:"fps"`
	DurationSecs     float64         `json:"duration_s"`
	TotalFrames      int             `json:"total_frames"`
	ValidFrames      int             `json:"valid_frames"`
	DetectionRate    float64         `json:"detection_rate"`
	StepCount        int             `json:"step_count"`
	StrideCount      int             `json:"stride_count"`
	ValidStrideCount int             `json:"valid_stride_count"`
	FeaturesJSON     json.RawMessage `json:"features_json,omitempty"`
	ScoresJSON       json.RawMessage `json:"scores_json,omitempty"`
	ParamsJSON       json.RawMessage `json:"params_json,omitempty"`
	CreatedAt        int64           `json:"created_at"`
}

// RunFromResult converts an analysis result into its persisted form. Feature
// and score documents use the canonical JSON encoding where sentinel values
// become zeros, so the reason field and count are the record of missing data.
func RunFromResult(res *gait.AnalysisResult, participant string, params gait.AnalysisParams) (*AnalysisRun, error) {
	featJSON, err := json.Marshal(res.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}
	scoreJSON, err := json.Marshal(res.Scores.Canonical())
	if err != nil {
		return nil, fmt.Errorf("marshal scores: %w", err)
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return &AnalysisRun{
		RunID:            res.RunID,
		VideoID:          res.VideoID,
		Participant:      participant,
		Quality:          string(res.Quality),
		Reason:           res.Reason,
		Direction:        string(res.Direction),
		Flipped:          res.Flipped,
		StepMode:         string(res.StepMode),
		FPS:              res.FPS,
		DurationSecs:     res.DurationSecs,
		TotalFrames:      res.TotalFrames,
		ValidFrames:      res.ValidFrames,
		DetectionRate:    res.DetectionRate,
		StepCount:        len(res.Steps),
		StrideCount:      len(res.Strides),
		ValidStrideCount: res.ValidStrideCount(),
		FeaturesJSON:     featJSON,
		ScoresJSON:       scoreJSON,
		ParamsJSON:       paramsJSON,
	}, nil
}

// RunStore provides persistence for gait analysis runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert persists a new analysis run. If RunID is empty, a UUID is generated.
func (s *RunStore) Insert(run *AnalysisRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO gait_runs (
				run_id, video_id, participant, quality, reason, direction,
				flipped, step_mode, fps, duration_s, total_frames, valid_frames,
				detection_rate, step_count, stride_count, valid_stride_count,
				features_json, scores_json, params_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.VideoID, run.Participant, run.Quality, run.Reason, run.Direction,
			run.Flipped, run.StepMode, run.FPS, run.DurationSecs, run.TotalFrames, run.ValidFrames,
			run.DetectionRate, run.StepCount, run.StrideCount, run.ValidStrideCount,
			nullJSON(run.FeaturesJSON), nullJSON(run.ScoresJSON), nullJSON(run.ParamsJSON),
			run.CreatedAt,
		)
		return err
	})
}

// Get returns the run with the given ID, or an error if it does not exist.
func (s *RunStore) Get(runID string) (*AnalysisRun, error) {
	rows, err := s.db.Query(selectRunColumns+` FROM gait_runs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return scanRun(rows)
}

// ListRecent returns the most recent runs, newest first.
func (s *RunStore) ListRecent(limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(selectRunColumns+`
		FROM gait_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// ListByVideo returns all runs for a given video, newest first.
func (s *RunStore) ListByVideo(videoID string) ([]*AnalysisRun, error) {
	rows, err := s.db.Query(selectRunColumns+`
		FROM gait_runs WHERE video_id = ? ORDER BY created_at DESC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query runs for video %s: %w", videoID, err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// ListByParticipant returns all runs for a participant, newest first.
func (s *RunStore) ListByParticipant(participant string) ([]*AnalysisRun, error) {
	rows, err := s.db.Query(selectRunColumns+`
		FROM gait_runs WHERE participant = ? ORDER BY created_at DESC`, participant)
	if err != nil {
		return nil, fmt.Errorf("query runs for participant %s: %w", participant, err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// Delete removes a run by ID. Returns an error if the run does not exist.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM gait_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}

const selectRunColumns = `
	SELECT run_id, video_id, participant, quality, reason, direction,
	       flipped, step_mode, fps, duration_s, total_frames, valid_frames,
	       detection_rate, step_count, stride_count, valid_stride_count,
	       features_json, scores_json, params_json, created_at`

// scanRun scans a run row from a sql.Rows cursor.
func scanRun(rows *sql.Rows) (*AnalysisRun, error) {
	var r AnalysisRun
	var participant, reason, direction, stepMode sql.NullString
	var features, scores, params sql.NullString
	err := rows.Scan(
		&r.RunID, &r.VideoID, &participant, &r.Quality, &reason, &direction,
		&r.Flipped, &stepMode, &r.FPS, &r.DurationSecs, &r.TotalFrames, &r.ValidFrames,
		&r.DetectionRate, &r.StepCount, &r.StrideCount, &r.ValidStrideCount,
		&features, &scores, &params, &r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.Participant = participant.String
	r.Reason = reason.String
	r.Direction = direction.String
	r.StepMode = stepMode.String
	if features.Valid {
		r.FeaturesJSON = json.RawMessage(features.String)
	}
	if scores.Valid {
		r.ScoresJSON = json.RawMessage(scores.String)
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	return &r, nil
}

func collectRuns(rows *sql.Rows) ([]*AnalysisRun, error) {
	var runs []*AnalysisRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullJSON(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// retryOnBusy retries a write when SQLite reports contention. Backoff is
// linear; five attempts cover the busy_timeout window of a competing writer.
func retryOnBusy(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !isBusyErr(err) {
			return err
		}
		time.Sleep(time.Duration(i+1) * 50 * time.Millisecond)
	}
	return err
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
