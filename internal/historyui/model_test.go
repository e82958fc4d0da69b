package historyui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/lstmtune/internal/model"
	"github.com/verte-zerg/lstmtune/internal/store"
)

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	combine, err := st.StartRun(ctx, model.Run{Stage: model.StageCombineTessdata, Lang: "jpn", NewLang: "new_jpn", OutputDir: "/out", StartedAt: base})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	combine.Status = model.RunFailed
	combine.Error = "combine_tessdata exited with status 2"
	combine.EndedAt = base.Add(time.Minute)
	if err := st.FinishRun(ctx, combine); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	training, err := st.StartRun(ctx, model.Run{Stage: model.StageLSTMTraining, Lang: "jpn", NewLang: "new_jpn", OutputDir: "/out", StartedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	for i, bcer := range []float64{9.5, 6.25, 4.125} {
		p := model.Progress{Iteration: (i + 1) * 100, BCER: bcer, BWER: bcer * 2}
		if err := st.AddProgress(ctx, training.ID, p); err != nil {
			t.Fatalf("add progress: %v", err)
		}
	}
	training.Status = model.RunSucceeded
	training.EndedAt = base.Add(2 * time.Hour)
	if err := st.FinishRun(ctx, training); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	return st
}

func sized(t *testing.T, m *Model) *Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(*Model)
}

func TestModelListsNewestRunFirst(t *testing.T) {
	m := sized(t, NewModel(seedStore(t), Config{CurveWindow: 2}))

	run, ok := m.SelectedRun()
	if !ok || run.Stage != model.StageLSTMTraining {
		t.Fatalf("expected newest run selected, got %+v", run)
	}
	view := m.View()
	if !strings.Contains(view, "lstmtraining") || !strings.Contains(view, "combine_tessdata") {
		t.Fatalf("runs missing from view:\n%s", view)
	}
}

func TestModelTrainingDetail(t *testing.T) {
	m := sized(t, NewModel(seedStore(t), Config{CurveWindow: 2}))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(*Model)
	if m.activeTab != tabTraining {
		t.Fatalf("expected training tab, got %d", m.activeTab)
	}
	view := m.View()
	for _, want := range []string{"Best BCER", "4.125%", "BCER avg"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestModelFailedRunDetail(t *testing.T) {
	m := sized(t, NewModel(seedStore(t), Config{CurveWindow: 2}))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(*Model)
	run, ok := m.SelectedRun()
	if !ok || run.Stage != model.StageCombineTessdata {
		t.Fatalf("expected older run selected, got %+v", run)
	}
	detail := renderRunDetail(run, nil, 2, 120)
	if !strings.Contains(detail, "exited with status 2") || strings.Contains(detail, "BCER") {
		t.Fatalf("unexpected detail:\n%s", detail)
	}
}

func TestModelApplyFilter(t *testing.T) {
	m := sized(t, NewModel(seedStore(t), Config{CurveWindow: 2}))
	m.filterInputs[filterStage].SetValue("2")
	m.filterInputs[filterWindow].SetValue("5")
	if err := m.applyFilter(); err != nil {
		t.Fatalf("apply filter: %v", err)
	}
	m.refreshReport()
	if len(m.report.Runs) != 1 || m.report.Runs[0].Stage != model.StageCombineTessdata {
		t.Fatalf("unexpected runs: %+v", m.report.Runs)
	}
	if m.cfg.CurveWindow != 5 {
		t.Fatalf("unexpected window: %d", m.cfg.CurveWindow)
	}
}

func TestModelApplyFilterRejectsBadInput(t *testing.T) {
	m := NewModel(seedStore(t), Config{})
	cases := map[int]string{
		filterStage:  "9",
		filterSince:  "03/01/2026",
		filterLast:   "-1",
		filterWindow: "0",
	}
	for idx, value := range cases {
		m.setInputsFromConfig()
		m.filterInputs[idx].SetValue(value)
		if err := m.applyFilter(); err == nil {
			t.Fatalf("expected error for input %d=%q", idx, value)
		}
	}
}

func TestModelQuits(t *testing.T) {
	m := NewModel(seedStore(t), Config{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
