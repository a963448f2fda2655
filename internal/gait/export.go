package gait

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// ExportMeta carries the per-recording metadata columns of the CSV export.
type ExportMeta struct {
	Participant string
	Timestamp   time.Time
}

// csvMetaColumns fixes the metadata column order. The full header is
// metadata, then the 16 features in canonical order, then the three scores;
// the order is byte-stable across runs.
var csvMetaColumns = []string{
	"participant",
	"video",
	"timestamp",
	"quality",
	"direction",
	"flipped",
	"fps",
	"duration_s",
	"total_frames",
	"valid_frames",
	"detection_rate",
	"step_count",
	"stride_count",
}

var csvScoreColumns = []string{
	"score_recon",
	"score_linear",
	"score_projection",
}

// CSVHeader returns the full export header in fixed order.
func CSVHeader() []string {
	header := make([]string, 0, len(csvMetaColumns)+FeatureCount+len(csvScoreColumns))
	header = append(header, csvMetaColumns...)
	header = append(header, FeatureNames[:]...)
	header = append(header, csvScoreColumns...)
	return header
}

// WriteCSV writes the header plus one record for the analysis result.
// Sentinel values render as the literal text "NaN".
func WriteCSV(w io.Writer, res *AnalysisResult, meta ExportMeta) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.Write(csvRecord(res, meta)); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// AppendCSV writes one record without a header, for multi-video exports.
func AppendCSV(w io.Writer, res *AnalysisResult, meta ExportMeta) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvRecord(res, meta)); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(res *AnalysisResult, meta ExportMeta) []string {
	rec := make([]string, 0, len(csvMetaColumns)+FeatureCount+len(csvScoreColumns))
	rec = append(rec,
		meta.Participant,
		res.VideoID,
		meta.Timestamp.UTC().Format(time.RFC3339),
		string(res.Quality),
		string(res.Direction),
		strconv.FormatBool(res.Flipped),
		formatFloat(res.FPS),
		formatFloat(res.DurationSecs),
		strconv.Itoa(res.TotalFrames),
		strconv.Itoa(res.ValidFrames),
		formatFloat(res.DetectionRate),
		strconv.Itoa(len(res.Steps)),
		strconv.Itoa(len(res.Strides)),
	)
	vec := res.Features.Vector()
	for _, v := range vec {
		rec = append(rec, formatFloat(v))
	}
	rec = append(rec,
		formatFloat(res.Scores.Reconstruction),
		formatFloat(res.Scores.Linear),
		formatFloat(res.Scores.Projection),
	)
	return rec
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
