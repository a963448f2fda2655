// Command gait-analyze runs the gait feature and scoring pipeline over a
// pose sequence file and reports the result as CSV, optionally persisting
// the run and writing diagnostic plots.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gaitlab/stride.report/internal/config"
	"github.com/gaitlab/stride.report/internal/db"
	"github.com/gaitlab/stride.report/internal/gait"
	"github.com/gaitlab/stride.report/internal/gait/monitor"
	storage "github.com/gaitlab/stride.report/internal/gait/storage/sqlite"
)

func main() {
	input := flag.String("i", "", "pose sequence JSON file (required)")
	output := flag.String("o", "", "output CSV path (default stdout)")
	appendCSV := flag.Bool("append", false, "append a record without a header")
	participant := flag.String("participant", "", "participant label for the export")
	configPath := flag.String("config", "", "tuning config JSON (optional)")
	modelDir := flag.String("models", "", "scoring model directory (optional, overrides config)")
	dbFile := flag.String("db", "", "SQLite database to persist the run (optional)")
	plotDir := flag.String("plots", "", "directory for diagnostic plots (optional)")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		log.Fatal("an input pose sequence is required")
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}
	params := gait.AnalysisParamsFromTuning(tuning)

	dir := *modelDir
	if dir == "" && tuning != nil {
		dir = tuning.GetModelDir()
	}

	analyzer := gait.NewAnalyzer(params)
	if dir != "" {
		analyzer.Scorer = gait.NewScorer(dir)
	}

	seq, err := gait.LoadPoseSequence(*input)
	if err != nil {
		log.Fatalf("failed to load pose sequence: %v", err)
	}

	res := analyzer.Analyze(seq)
	log.Printf("run %s: quality=%s mode=%s steps=%d strides=%d (%d valid)",
		res.RunID, res.Quality, res.StepMode, len(res.Steps), len(res.Strides), res.ValidStrideCount())
	if res.Reason != "" {
		log.Printf("reason: %s", res.Reason)
	}

	meta := gait.ExportMeta{Participant: *participant, Timestamp: time.Now()}
	out := os.Stdout
	if *output != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if *appendCSV {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		out, err = os.OpenFile(*output, flags, 0644)
		if err != nil {
			log.Fatalf("failed to open output: %v", err)
		}
		defer out.Close()
	}
	if *appendCSV {
		err = gait.AppendCSV(out, res, meta)
	} else {
		err = gait.WriteCSV(out, res, meta)
	}
	if err != nil {
		log.Fatalf("failed to write CSV: %v", err)
	}

	if *dbFile != "" {
		database, err := db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}

		run, err := storage.RunFromResult(res, *participant, params)
		if err != nil {
			log.Fatalf("failed to convert run: %v", err)
		}
		if err := storage.NewRunStore(database.DB).Insert(run); err != nil {
			log.Fatalf("failed to persist run: %v", err)
		}
		log.Printf("✓ Persisted run %s", run.RunID)
	}

	if *plotDir != "" {
		plotter, err := monitor.NewSignalPlotter(*plotDir)
		if err != nil {
			log.Fatalf("failed to create plotter: %v", err)
		}
		if err := plotter.GeneratePlots(seq, res, params); err != nil {
			log.Fatalf("failed to generate plots: %v", err)
		}
		if res.Detection != nil {
			f, err := os.Create(filepath.Join(*plotDir, "candidates.html"))
			if err != nil {
				log.Fatalf("failed to create candidate chart: %v", err)
			}
			if err := monitor.RenderCandidateChart(f, res.Detection); err != nil {
				f.Close()
				log.Fatalf("failed to render candidate chart: %v", err)
			}
			f.Close()
		}
		log.Printf("✓ Plots written to %s", *plotDir)
	}
}
