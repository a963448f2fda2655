package gait

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// CoreLandmarks are the six landmarks a frame must detect with sufficient
// confidence before any gait signal is derived from it.
var CoreLandmarks = [6]int{LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle}

// mirrorIndex maps each landmark to its left/right counterpart. Landmarks on
// the body midline map to themselves.
var mirrorIndex = [NumLandmarks]int{
	Nose:           Nose,
	LeftEyeInner:   RightEyeInner,
	LeftEye:        RightEye,
	LeftEyeOuter:   RightEyeOuter,
	RightEyeInner:  LeftEyeInner,
	RightEye:       LeftEye,
	RightEyeOuter:  LeftEyeOuter,
	LeftEar:        RightEar,
	RightEar:       LeftEar,
	MouthLeft:      MouthRight,
	MouthRight:     MouthLeft,
	LeftShoulder:   RightShoulder,
	RightShoulder:  LeftShoulder,
	LeftElbow:      RightElbow,
	RightElbow:     LeftElbow,
	LeftWrist:      RightWrist,
	RightWrist:     LeftWrist,
	LeftPinky:      RightPinky,
	RightPinky:     LeftPinky,
	LeftIndex:      RightIndex,
	RightIndex:     LeftIndex,
	LeftThumb:      RightThumb,
	RightThumb:     LeftThumb,
	LeftHip:        RightHip,
	RightHip:       LeftHip,
	LeftKnee:       RightKnee,
	RightKnee:      LeftKnee,
	LeftAnkle:      RightAnkle,
	RightAnkle:     LeftAnkle,
	LeftHeel:       RightHeel,
	RightHeel:      LeftHeel,
	LeftFootIndex:  RightFootIndex,
	RightFootIndex: LeftFootIndex,
}
