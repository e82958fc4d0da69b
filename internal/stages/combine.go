package stages

import (
	"context"
	"path/filepath"

	"github.com/verte-zerg/lstmtune/internal/runner"
)

// CombineTessdata extracts the LSTM seed model of lang from
// tessdataDir/<lang>.traineddata into outputDir/<lang>.lstm and returns
// the written path.
func CombineTessdata(ctx context.Context, r *runner.Runner, lang, tessdataDir, outputDir string) (string, error) {
	traineddata := filepath.Join(tessdataDir, lang+".traineddata")
	lstm := filepath.Join(outputDir, lang+".lstm")
	if err := requireInputs(traineddata, outputDir); err != nil {
		return "", err
	}
	if err := r.Run(ctx, runner.NewCommand("combine_tessdata", "-e", traineddata, lstm)); err != nil {
		return "", err
	}
	if err := requireOutputs(lstm); err != nil {
		return "", err
	}
	return lstm, nil
}
