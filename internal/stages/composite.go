package stages

import (
	"context"
	"path/filepath"

	"github.com/verte-zerg/lstmtune/internal/runner"
)

// CompositeParams are the inputs of the final model composition stage.
type CompositeParams struct {
	Lang        string
	NewLang     string
	TessdataDir string
	OutputDir   string
	Checkpoint  string
}

// Composite stops training at the given checkpoint and writes
// outputDir/<new_lang>.traineddata, returning its path.
func Composite(ctx context.Context, r *runner.Runner, p CompositeParams) (string, error) {
	checkpoint := filepath.Join(ModelDir(p.OutputDir), p.Checkpoint)
	traineddata := filepath.Join(p.OutputDir, p.Lang, p.Lang+".traineddata")
	oldTraineddata := filepath.Join(p.TessdataDir, p.Lang+".traineddata")
	output := filepath.Join(p.OutputDir, p.NewLang+".traineddata")
	if err := requireInputs(checkpoint, traineddata, oldTraineddata); err != nil {
		return "", err
	}

	err := r.Run(ctx, runner.NewCommand("lstmtraining",
		"--stop_training",
		"--continue_from="+checkpoint,
		"--traineddata="+traineddata,
		"--old_traineddata="+oldTraineddata,
		"--model_output="+output,
	))
	if err != nil {
		return "", err
	}
	if err := requireOutputs(output); err != nil {
		return "", err
	}
	return output, nil
}
