// Package evaluate measures a trained model against ground truth line
// images.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/lstmtune/internal/stats"
)

// TruthSuffix names the ground truth file of an image: line.png has its
// text in line.gt.txt.
const TruthSuffix = ".gt.txt"

var imageExts = map[string]bool{".tif": true, ".tiff": true, ".png": true}

// ErrNoSamples is returned when a directory holds no image with ground truth.
var ErrNoSamples = errors.New("no ground truth samples found")

// Sample is a line image and its expected text.
type Sample struct {
	Image string
	Truth string
}

// Recognizer returns the text of one line image.
type Recognizer interface {
	Recognize(ctx context.Context, image string) (string, error)
}

// Result is the outcome of one sample.
type Result struct {
	Sample Sample
	Got    string
	Counts stats.ErrorCounts
}

// Report holds every sample result and their sum.
type Report struct {
	Results []Result
	Total   stats.ErrorCounts
}

// CollectSamples finds images in dir with a sibling ground truth file,
// sorted by path. Images without ground truth are skipped.
func CollectSamples(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample dir: %w", err)
	}
	var samples []Sample
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !imageExts[ext] {
			continue
		}
		image := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(strings.TrimSuffix(image, filepath.Ext(image)) + TruthSuffix)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read ground truth: %w", err)
		}
		samples = append(samples, Sample{Image: image, Truth: strings.TrimSpace(string(data))})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, dir)
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Image < samples[j].Image
	})
	return samples, nil
}

// Evaluate recognises every sample in order and accumulates error counts.
// It stops at the first recognition error.
func Evaluate(ctx context.Context, rec Recognizer, samples []Sample, log logrus.FieldLogger) (Report, error) {
	var report Report
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		got, err := rec.Recognize(ctx, sample.Image)
		if err != nil {
			return report, fmt.Errorf("failed to recognize %s: %w", filepath.Base(sample.Image), err)
		}
		got = strings.TrimSpace(got)
		var counts stats.ErrorCounts
		counts.Compare(sample.Truth, got)
		report.Results = append(report.Results, Result{Sample: sample, Got: got, Counts: counts})
		report.Total.Add(counts)
		log.WithFields(logrus.Fields{
			"cer": fmt.Sprintf("%.4f", counts.CER()),
			"wer": fmt.Sprintf("%.4f", counts.WER()),
		}).Debugf("%s: %q", filepath.Base(sample.Image), got)
	}
	return report, nil
}

// Render prints one row per sample followed by the totals.
func (r Report) Render(w io.Writer) error {
	headers := []string{"Image", "CER", "WER", "Text"}
	rows := make([][]string, 0, len(r.Results)+1)
	for _, res := range r.Results {
		rows = append(rows, []string{
			filepath.Base(res.Sample.Image),
			percent(res.Counts.CER()),
			percent(res.Counts.WER()),
			res.Got,
		})
	}
	rows = append(rows, []string{"Total", percent(r.Total.CER()), percent(r.Total.WER()), ""})
	for _, line := range stats.FormatTable(headers, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
