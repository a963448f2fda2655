package gait

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxSequenceBytes caps pose sequence documents. A half hour of video at
// 30 fps stays well under this.
const maxSequenceBytes = 256 << 20

// LoadPoseSequence reads a pose sequence document from a JSON file, the
// interchange format produced by the landmark extraction stage.
func LoadPoseSequence(path string) (*PoseSequence, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("pose sequence %s: expected a .json file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pose sequence: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSequenceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read pose sequence: %w", err)
	}
	if len(data) > maxSequenceBytes {
		return nil, fmt.Errorf("pose sequence %s exceeds %d bytes", path, maxSequenceBytes)
	}

	var seq PoseSequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse pose sequence: %w", err)
	}
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("pose sequence %s: %w", path, err)
	}
	return &seq, nil
}

// Validate checks the structural invariants of a sequence document.
func (s *PoseSequence) Validate() error {
	if s.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %v", s.FPS)
	}
	if s.FrameCount != len(s.Frames) {
		return fmt.Errorf("frame_count %d does not match %d frames", s.FrameCount, len(s.Frames))
	}
	switch s.Direction {
	case DirectionLeftToRight, DirectionRightToLeft, DirectionUnknown, "":
	default:
		return fmt.Errorf("unknown direction %q", s.Direction)
	}
	return nil
}

// SavePoseSequence writes a sequence document as indented JSON, for fixtures
// and the synthetic generator.
func SavePoseSequence(path string, seq *PoseSequence) error {
	data, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pose sequence: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write pose sequence: %w", err)
	}
	return nil
}
