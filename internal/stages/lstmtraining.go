package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/verte-zerg/lstmtune/internal/model"
	"github.com/verte-zerg/lstmtune/internal/runner"
	"github.com/verte-zerg/lstmtune/internal/stats"
)

// LSTMTrainingParams are the inputs of the fine-tuning stage.
type LSTMTrainingParams struct {
	Lang        string
	NewLang     string
	TessdataDir string
	OutputDir   string
	// MaxIterations bounds training when positive.
	MaxIterations int
}

// ModelDir returns the directory lstmtraining writes checkpoints to.
func ModelDir(outputDir string) string {
	return filepath.Join(outputDir, "exp")
}

// LSTMTraining fine-tunes the seed model against the generated training
// files. Progress lines are parsed and handed to onProgress when non-nil.
func LSTMTraining(ctx context.Context, r *runner.Runner, p LSTMTrainingParams, onProgress func(model.Progress)) error {
	continueFrom := filepath.Join(p.OutputDir, p.Lang+".lstm")
	traineddata := filepath.Join(p.OutputDir, p.Lang, p.Lang+".traineddata")
	oldTraineddata := filepath.Join(p.TessdataDir, p.Lang+".traineddata")
	listFile := filepath.Join(p.OutputDir, p.Lang+".training_files.txt")
	if err := requireInputs(continueFrom, traineddata, oldTraineddata, listFile); err != nil {
		return err
	}

	modelDir := ModelDir(p.OutputDir)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	args := []string{
		"--continue_from=" + continueFrom,
		"--traineddata=" + traineddata,
		"--old_traineddata=" + oldTraineddata,
		"--model_output=" + filepath.Join(modelDir, p.NewLang),
		"--train_listfile=" + listFile,
	}
	if p.MaxIterations > 0 {
		args = append(args, "--max_iterations="+strconv.Itoa(p.MaxIterations))
	}

	var observers []runner.LineFunc
	if onProgress != nil {
		observers = append(observers, func(line string) {
			if progress, ok := stats.ParseProgress(line); ok {
				onProgress(progress)
			}
		})
	}
	return r.Run(ctx, runner.NewCommand("lstmtraining", args...), observers...)
}
