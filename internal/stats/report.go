package stats

import (
	"context"

	"github.com/verte-zerg/lstmtune/internal/model"
	"github.com/verte-zerg/lstmtune/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Runs     []model.Run
	Progress map[string][]model.Progress
}

// BuildReport loads runs matching filter and the progress of every
// lstmtraining run among them.
func BuildReport(ctx context.Context, st *store.Store, filter model.RunFilter) (Report, error) {
	runs, err := st.ListRuns(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	progress := map[string][]model.Progress{}
	for _, run := range runs {
		if run.Stage != model.StageLSTMTraining {
			continue
		}
		p, err := st.ListProgress(ctx, run.ID)
		if err != nil {
			return Report{}, err
		}
		if len(p) > 0 {
			progress[run.ID] = p
		}
	}
	return Report{Runs: runs, Progress: progress}, nil
}
