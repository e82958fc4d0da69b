package evaluate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

type fakeRecognizer map[string]string

func (f fakeRecognizer) Recognize(_ context.Context, image string) (string, error) {
	text, ok := f[filepath.Base(image)]
	if !ok {
		return "", errors.New("unreadable image")
	}
	return text, nil
}

func writeSample(t *testing.T, dir, image, truth string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, image), []byte("img"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if truth == "" {
		return
	}
	gt := strings.TrimSuffix(image, filepath.Ext(image)) + TruthSuffix
	if err := os.WriteFile(filepath.Join(dir, gt), []byte(truth+"\n"), 0o644); err != nil {
		t.Fatalf("write truth: %v", err)
	}
}

func TestCollectSamples(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "b.png", "second line")
	writeSample(t, dir, "a.tif", "first line")
	writeSample(t, dir, "orphan.png", "")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	samples, err := CollectSamples(dir)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if filepath.Base(samples[0].Image) != "a.tif" || samples[0].Truth != "first line" {
		t.Fatalf("unexpected first sample: %+v", samples[0])
	}
}

func TestCollectSamplesEmpty(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "orphan.png", "")
	if _, err := CollectSamples(dir); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	samples := []Sample{
		{Image: "/gt/a.png", Truth: "hello world"},
		{Image: "/gt/b.png", Truth: "日本語"},
	}
	rec := fakeRecognizer{"a.png": "hello world\n", "b.png": "日本詰"}
	logger, _ := test.NewNullLogger()

	report, err := Evaluate(context.Background(), rec, samples, logger)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if report.Results[0].Counts.CharErrors != 0 || report.Results[0].Got != "hello world" {
		t.Fatalf("unexpected first result: %+v", report.Results[0])
	}
	if report.Total.CharErrors != 1 || report.Total.Chars != 14 {
		t.Fatalf("unexpected totals: %+v", report.Total)
	}
	if report.Total.WordErrors != 1 || report.Total.Words != 3 {
		t.Fatalf("unexpected word totals: %+v", report.Total)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Total") || !strings.Contains(out, "33.33%") || !strings.Contains(out, "7.14%") {
		t.Fatalf("unexpected render:\n%s", out)
	}
}

func TestEvaluateStopsOnRecognizerError(t *testing.T) {
	samples := []Sample{{Image: "/gt/a.png", Truth: "a"}, {Image: "/gt/missing.png", Truth: "b"}}
	logger, _ := test.NewNullLogger()

	report, err := Evaluate(context.Background(), fakeRecognizer{"a.png": "a"}, samples, logger)
	if err == nil || !strings.Contains(err.Error(), "missing.png") {
		t.Fatalf("expected recognition error, got %v", err)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected partial report, got %d results", len(report.Results))
	}
}
