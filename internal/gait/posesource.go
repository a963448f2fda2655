package gait

import (
	"fmt"
	"math"
)

// PoseDetector is the upstream pose-detection collaborator. Detect runs the
// landmark model on the selected region of frame frameIndex and returns the
// landmarks in crop-relative normalized coordinates, or Detected=false when
// the model found nobody. Video decoding and the neural runtime live behind
// this interface.
type PoseDetector interface {
	Detect(frameIndex int, crop Crop) (PoseFrame, error)
}

// CollectROISequence drives the ROI controller over every frame of a video,
// feeding each action's crop to the detector and mapping crop-relative
// detections back to full-frame normalized coordinates. The result is a
// complete PoseSequence ready for Analyze.
func CollectROISequence(videoID string, fps float64, frameCount int, det PoseDetector, p ROIParams) (*PoseSequence, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("collect: fps must be positive, got %v", fps)
	}
	seq := &PoseSequence{
		VideoID:    videoID,
		FPS:        fps,
		FrameCount: frameCount,
		Frames:     make([]PoseFrame, frameCount),
		Direction:  DirectionUnknown,
	}

	state := NewROIState()
	action := ROIAction{UseFullFrame: true, Crop: FullFrameCrop()}
	for i := 0; i < frameCount; i++ {
		frame, err := det.Detect(i, action.Crop)
		if err != nil {
			return nil, fmt.Errorf("collect: detect frame %d: %w", i, err)
		}
		frame.Index = i
		frame.TimeSecs = float64(i) / fps
		if frame.Detected && !action.UseFullFrame {
			frame = mapFrameToFull(frame, action.Crop)
		}
		seq.Frames[i] = frame

		state, action = p.Step(state, ObservationFromFrame(&frame))
	}
	seq.Direction = estimateDirection(seq)
	return seq, nil
}

// mapFrameToFull rewrites a crop-relative detection into full-frame
// normalized coordinates.
func mapFrameToFull(f PoseFrame, crop Crop) PoseFrame {
	for lm := 0; lm < NumLandmarks; lm++ {
		f.Landmarks[lm] = crop.MapToFullFrame(f.Landmarks[lm])
	}
	return f
}

// estimateDirection infers the dominant walking direction from the mid-hip
// horizontal drift across detected frames.
func estimateDirection(seq *PoseSequence) WalkDirection {
	firstX, lastX := math.NaN(), math.NaN()
	for i := range seq.Frames {
		f := &seq.Frames[i]
		if !f.Detected {
			continue
		}
		x := (f.Landmarks[LeftHip].X + f.Landmarks[RightHip].X) / 2
		if math.IsNaN(firstX) {
			firstX = x
		}
		lastX = x
	}
	if math.IsNaN(firstX) || math.IsNaN(lastX) {
		return DirectionUnknown
	}
	const driftFloor = 0.05 // ignore camera jitter below this drift
	switch {
	case lastX-firstX > driftFloor:
		return DirectionLeftToRight
	case firstX-lastX > driftFloor:
		return DirectionRightToLeft
	}
	return DirectionUnknown
}
