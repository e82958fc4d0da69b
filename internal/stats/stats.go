// Package stats contains training metrics, error rates and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/lstmtune/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Downsample keeps at most width values, taking evenly spaced samples and
// always keeping the last one.
func Downsample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]float64, width)
	step := float64(len(values)-1) / float64(width-1)
	for i := range out {
		out[i] = values[int(math.Round(float64(i)*step))]
	}
	return out
}

// RenderRuns prints the run history as an aligned table.
func RenderRuns(w io.Writer, runs []model.Run, now time.Time) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	headers := []string{"Started", "Stage", "Lang", "New Lang", "Status", "Duration", "Log"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, RunRow(run, now))
	}
	for _, line := range formatTable(headers, rows, map[int]bool{5: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RunRow formats the columns shown for one run.
func RunRow(run model.Run, now time.Time) []string {
	duration := "-"
	if d := run.Duration(); d > 0 {
		duration = d.Round(time.Second).String()
	}
	logFile := run.LogFile
	if logFile == "" {
		logFile = "-"
	}
	return []string{
		humanize.RelTime(run.StartedAt, now, "ago", "from now"),
		fmt.Sprintf("%d %s", int(run.Stage), run.Stage),
		run.Lang,
		run.NewLang,
		string(run.Status),
		duration,
		logFile,
	}
}

// RenderProgress prints a summary of lstmtraining progress with BCER curves.
func RenderProgress(w io.Writer, progress []model.Progress, window, width int) error {
	if len(progress) == 0 {
		_, err := fmt.Fprintln(w, "No training progress recorded.")
		return err
	}
	summary := Summarize(progress)
	lines := []string{
		fmt.Sprintf("Reports: %d", len(progress)),
		fmt.Sprintf("Last iteration: %s", humanize.Comma(int64(summary.LastIteration))),
		fmt.Sprintf("Last BCER: %.3f%%  BWER: %.3f%%", summary.LastBCER, summary.LastBWER),
		fmt.Sprintf("Best BCER: %.3f%% at iteration %s", summary.BestBCER, humanize.Comma(int64(summary.BestIteration))),
	}
	bcer := make([]float64, len(progress))
	for i, p := range progress {
		bcer[i] = p.BCER
	}
	lines = append(lines,
		"BCER     "+Sparkline(Downsample(bcer, width)),
		"BCER avg "+Sparkline(Downsample(MovingAverage(bcer, window), width)),
	)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ProgressSummary condenses a series of progress reports.
type ProgressSummary struct {
	LastIteration int
	LastBCER      float64
	LastBWER      float64
	BestBCER      float64
	BestIteration int
}

// Summarize returns the last and best values of a progress series.
func Summarize(progress []model.Progress) ProgressSummary {
	if len(progress) == 0 {
		return ProgressSummary{}
	}
	last := progress[len(progress)-1]
	s := ProgressSummary{
		LastIteration: last.Iteration,
		LastBCER:      last.BCER,
		LastBWER:      last.BWER,
		BestBCER:      progress[0].BCER,
		BestIteration: progress[0].Iteration,
	}
	for _, p := range progress[1:] {
		if p.BCER < s.BestBCER {
			s.BestBCER = p.BCER
			s.BestIteration = p.Iteration
		}
	}
	return s
}
