package gait

import (
	"fmt"
	"testing"
)

// replayDetector serves a prerecorded sequence, translating full-frame
// landmarks into the requested crop's coordinate system the way a real
// detector sees them.
type replayDetector struct {
	seq   *PoseSequence
	crops []Crop
}

func (d *replayDetector) Detect(frameIndex int, crop Crop) (PoseFrame, error) {
	if frameIndex >= len(d.seq.Frames) {
		return PoseFrame{}, fmt.Errorf("frame %d out of range", frameIndex)
	}
	d.crops = append(d.crops, crop)
	f := d.seq.Frames[frameIndex]
	if !f.Detected {
		return f, nil
	}
	w, h := crop.X1-crop.X0, crop.Y1-crop.Y0
	if w <= 0 || h <= 0 {
		return PoseFrame{Detected: false}, nil
	}
	for lm := 0; lm < NumLandmarks; lm++ {
		pt := f.Landmarks[lm]
		f.Landmarks[lm] = Point{X: (pt.X - crop.X0) / w, Y: (pt.Y - crop.Y0) / h}
	}
	return f, nil
}

func TestCollectROISequence_RoundTripsCropCoordinates(t *testing.T) {
	src := SyntheticWalkSequence("roi-walk", DefaultSynthWalkParams())
	det := &replayDetector{seq: src}

	seq, err := CollectROISequence("roi-walk", src.FPS, src.FrameCount, det, DefaultAnalysisParams().ROI)
	if err != nil {
		t.Fatalf("CollectROISequence: %v", err)
	}
	if seq.FrameCount != src.FrameCount || len(seq.Frames) != src.FrameCount {
		t.Fatalf("frame count = %d, want %d", seq.FrameCount, src.FrameCount)
	}

	// Once the controller starts cropping, mapped landmarks must land back
	// on the original full-frame coordinates.
	cropped := 0
	for i, f := range seq.Frames {
		orig := src.Frames[i]
		for _, lm := range CoreLandmarks {
			dx := f.Landmarks[lm].X - orig.Landmarks[lm].X
			dy := f.Landmarks[lm].Y - orig.Landmarks[lm].Y
			if dx > 1e-9 || dx < -1e-9 || dy > 1e-9 || dy < -1e-9 {
				t.Fatalf("frame %d landmark %d drifted by (%v, %v)", i, lm, dx, dy)
			}
		}
	}
	for _, c := range det.crops {
		if c != FullFrameCrop() {
			cropped++
		}
	}
	if cropped == 0 {
		t.Error("controller never narrowed the crop on a clean sequence")
	}

	// A collected clean walk analyzes identically to the direct sequence.
	res := NewAnalyzer(DefaultAnalysisParams()).Analyze(seq)
	if res.Quality != QualityOK {
		t.Errorf("quality = %s (%s), want %s", res.Quality, res.Reason, QualityOK)
	}
}

func TestCollectROISequence_RejectsNonPositiveFPS(t *testing.T) {
	det := &replayDetector{seq: SyntheticStillSequence("x", 10, 30)}
	if _, err := CollectROISequence("x", 0, 10, det, DefaultAnalysisParams().ROI); err == nil {
		t.Error("expected an error for fps 0")
	}
}

func TestEstimateDirection(t *testing.T) {
	drift := func(start, end float64, frames int) *PoseSequence {
		seq := &PoseSequence{FrameCount: frames, Frames: make([]PoseFrame, frames)}
		for i := range seq.Frames {
			x := start + (end-start)*float64(i)/float64(frames-1)
			f := PoseFrame{Detected: true}
			f.Landmarks[LeftHip] = Point{X: x - 0.04, Y: 0.5}
			f.Landmarks[RightHip] = Point{X: x + 0.04, Y: 0.5}
			seq.Frames[i] = f
		}
		return seq
	}

	if got := estimateDirection(drift(0.2, 0.8, 30)); got != DirectionLeftToRight {
		t.Errorf("rightward drift classified as %s", got)
	}
	if got := estimateDirection(drift(0.8, 0.2, 30)); got != DirectionRightToLeft {
		t.Errorf("leftward drift classified as %s", got)
	}
	// Camera jitter below the drift floor stays unknown.
	if got := estimateDirection(drift(0.5, 0.52, 30)); got != DirectionUnknown {
		t.Errorf("jitter classified as %s", got)
	}

	empty := &PoseSequence{FrameCount: 5, Frames: make([]PoseFrame, 5)}
	if got := estimateDirection(empty); got != DirectionUnknown {
		t.Errorf("undetected sequence classified as %s", got)
	}
}
