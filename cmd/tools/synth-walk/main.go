// Command synth-walk generates synthetic pose sequence fixtures for testing
// the analysis pipeline end to end without a video or a landmark model.
package main

import (
	"flag"
	"log"

	"github.com/gaitlab/stride.report/internal/gait"
)

func main() {
	output := flag.String("o", "walk.json", "output path")
	frames := flag.Int("n", 150, "number of frames")
	fps := flag.Float64("fps", 30, "frames per second")
	period := flag.Float64("period", 0.9, "step period in seconds")
	amplitude := flag.Float64("amp", 0.08, "inter-ankle swing amplitude (normalized)")
	still := flag.Bool("still", false, "generate a still subject instead of a walker")
	flag.Parse()

	var seq *gait.PoseSequence
	if *still {
		seq = gait.SyntheticStillSequence("synth-still", *frames, *fps)
	} else {
		p := gait.DefaultSynthWalkParams()
		p.Frames = *frames
		p.FPS = *fps
		p.StepPeriod = *period
		p.Amplitude = *amplitude
		seq = gait.SyntheticWalkSequence("synth-walk", p)
	}

	if err := gait.SavePoseSequence(*output, seq); err != nil {
		log.Fatalf("failed to write sequence: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames at %.1f fps)", *output, *frames, *fps)
}
