package gait

import (
	"fmt"
	"math"
)

// SynthWalkParams configures the synthetic walking-sequence generator used
// by fixtures, demos and the end-to-end tests.
type SynthWalkParams struct {
	Frames     int
	FPS        float64
	StepPeriod float64 // seconds per step
	Amplitude  float64 // half peak-to-peak inter-ankle excursion, normalized units
	Confidence float64 // per-landmark confidence on every frame
}

// DefaultSynthWalkParams mirrors a typical handheld capture: 150 frames at
// 30 fps with a 0.9 s step period.
func DefaultSynthWalkParams() SynthWalkParams {
	return SynthWalkParams{
		Frames:     150,
		FPS:        30,
		StepPeriod: 0.9,
		Amplitude:  0.08,
		Confidence: 0.99,
	}
}

// SyntheticWalkSequence generates a pose sequence whose ankles oscillate
// sinusoidally around a walking subject, with complete core landmarks and
// full confidence on every frame.
func SyntheticWalkSequence(videoID string, p SynthWalkParams) *PoseSequence {
	seq := &PoseSequence{
		VideoID:    videoID,
		FPS:        p.FPS,
		Width:      1920,
		Height:     1080,
		FrameCount: p.Frames,
		Frames:     make([]PoseFrame, p.Frames),
		Direction:  DirectionLeftToRight,
	}
	omega := 2 * math.Pi / p.StepPeriod
	for i := 0; i < p.Frames; i++ {
		t := float64(i) / p.FPS
		// The ankle separation itself is the sinusoid: one peak per step.
		swing := p.Amplitude * (1 + math.Sin(omega*t)) / 2
		// Knee flexion oscillates in phase with the step; a zero-amplitude
		// (still) subject flexes nothing.
		bend := 0.03 * (1 - math.Cos(omega*t)) / 2
		if p.Amplitude == 0 {
			bend = 0
		}

		f := PoseFrame{Index: i, TimeSecs: t, Detected: true}
		for lm := 0; lm < NumLandmarks; lm++ {
			f.Confidence[lm] = p.Confidence
		}

		cx := 0.5 // subject centered; camera pans with the walker
		f.Landmarks[LeftShoulder] = Point{X: cx - 0.05, Y: 0.30}
		f.Landmarks[RightShoulder] = Point{X: cx + 0.05, Y: 0.30}
		f.Landmarks[LeftHip] = Point{X: cx - 0.04, Y: 0.52}
		f.Landmarks[RightHip] = Point{X: cx + 0.04, Y: 0.52}

		leftAnkleX := cx - 0.02 - swing/2
		rightAnkleX := cx + 0.02 + swing/2
		f.Landmarks[LeftAnkle] = Point{X: leftAnkleX, Y: 0.90}
		f.Landmarks[RightAnkle] = Point{X: rightAnkleX, Y: 0.90 - 0.01*swing/math.Max(p.Amplitude, 1e-9)}

		// Knees sit between hip and ankle, bowed outward by the flexion term
		// so the joint angle oscillates with the step.
		f.Landmarks[LeftKnee] = Point{
			X: (f.Landmarks[LeftHip].X+leftAnkleX)/2 - bend,
			Y: 0.71,
		}
		f.Landmarks[RightKnee] = Point{
			X: (f.Landmarks[RightHip].X+rightAnkleX)/2 + bend,
			Y: 0.71,
		}

		seq.Frames[i] = f
	}
	return seq
}

// SyntheticStillSequence generates a sequence of a perfectly still subject:
// complete detections, constant landmark geometry, constant inter-ankle
// distance.
func SyntheticStillSequence(videoID string, frames int, fps float64) *PoseSequence {
	p := DefaultSynthWalkParams()
	p.Frames = frames
	p.FPS = fps
	p.Amplitude = 0
	seq := SyntheticWalkSequence(videoID, p)
	if seq.VideoID == "" {
		seq.VideoID = fmt.Sprintf("still-%d", frames)
	}
	return seq
}
