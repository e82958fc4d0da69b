package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/lstmtune/internal/model"
)

func TestParseProgress(t *testing.T) {
	line := "At iteration 14615/695400/698614, Mean rms=0.158%, delta=0.295%, BCER train=1.882%, BWER train=5.522%, skip ratio=0.6%, New worst BCER = 1.882 wrote checkpoint."
	p, ok := ParseProgress(line)
	if !ok {
		t.Fatalf("expected progress line to parse")
	}
	want := model.Progress{
		Iteration:         14615,
		LearningIteration: 695400,
		TrainingIteration: 698614,
		MeanRMS:           0.158,
		Delta:             0.295,
		BCER:              1.882,
		BWER:              5.522,
		SkipRatio:         0.6,
	}
	if p != want {
		t.Fatalf("got %+v, want %+v", p, want)
	}
}

func TestParseProgressLegacyWording(t *testing.T) {
	line := "At iteration 100/100/100, Mean rms=4.514%, delta=19.089%, char train=96.537%, word train=99.9%, skip ratio=0%,  New worst char error = 96.537 wrote checkpoint."
	p, ok := ParseProgress(line)
	if !ok {
		t.Fatalf("expected legacy line to parse")
	}
	if p.BCER != 96.537 || p.BWER != 99.9 || p.Iteration != 100 {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestParseProgressIgnoresOtherLines(t *testing.T) {
	for _, line := range []string{
		"Loaded file /out/jpn.lstm, unpacking...",
		"Finished! Selected model with minimal training error rate (BCER) = 1.2",
		"",
	} {
		if _, ok := ParseProgress(line); ok {
			t.Fatalf("unexpected match for %q", line)
		}
	}
}

func TestSummarizeAndRender(t *testing.T) {
	progress := []model.Progress{
		{Iteration: 100, BCER: 9.5, BWER: 20},
		{Iteration: 200, BCER: 3.25, BWER: 10},
		{Iteration: 300, BCER: 4, BWER: 11},
	}
	s := Summarize(progress)
	if s.BestBCER != 3.25 || s.BestIteration != 200 || s.LastIteration != 300 || s.LastBCER != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
	var buf bytes.Buffer
	if err := RenderProgress(&buf, progress, 2, 40); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Reports: 3", "Best BCER: 3.250% at iteration 200", "BCER     @"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDownsampleKeepsEnds(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := Downsample(values, 4)
	if len(got) != 4 || got[0] != 0 || got[3] != 9 {
		t.Fatalf("unexpected downsample %v", got)
	}
}
