package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/lstmtune/internal/model"
	"github.com/verte-zerg/lstmtune/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []string
	for i, stage := range []model.Stage{model.StageCombineTessdata, model.StageLSTMTraining, model.StageLSTMTraining} {
		run, err := st.StartRun(ctx, model.Run{
			Stage:     stage,
			Lang:      "jpn",
			NewLang:   "new_jpn",
			StartedAt: time.Unix(0, 0).Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("start run: %v", err)
		}
		ids = append(ids, run.ID)
	}
	if err := st.AddProgress(ctx, ids[1], model.Progress{Iteration: 100, BCER: 3}); err != nil {
		t.Fatalf("add progress: %v", err)
	}

	report, err := BuildReport(ctx, st, model.RunFilter{Last: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(report.Runs))
	}
	if report.Runs[0].ID != ids[1] || report.Runs[1].ID != ids[2] {
		t.Fatalf("unexpected run ids: %+v", report.Runs)
	}
	if len(report.Progress[ids[1]]) != 1 {
		t.Fatalf("expected progress for first training run")
	}
	if _, ok := report.Progress[ids[2]]; ok {
		t.Fatalf("expected no progress entry for run without reports")
	}
}
