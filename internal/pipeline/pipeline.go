// Package pipeline dispatches a resolved training config to its stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/lstmtune/internal/logging"
	"github.com/verte-zerg/lstmtune/internal/model"
	"github.com/verte-zerg/lstmtune/internal/runner"
	"github.com/verte-zerg/lstmtune/internal/stages"
)

var (
	// ErrUnknownStage is returned for a stage outside 0-4.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrOutputDirRequired is returned when a stage that reads or writes
	// the output directory runs without one.
	ErrOutputDirRequired = errors.New("output_dir is required")
)

// History records dispatched runs. *store.Store implements it.
type History interface {
	StartRun(ctx context.Context, run model.Run) (model.Run, error)
	FinishRun(ctx context.Context, run model.Run) error
	AddProgress(ctx context.Context, runID string, p model.Progress) error
}

// Dispatcher runs one stage per call inside its own log scope.
type Dispatcher struct {
	session *logging.Session
	runner  *runner.Runner
	history History
}

// New returns a Dispatcher. history may be nil.
func New(session *logging.Session, r *runner.Runner, history History) *Dispatcher {
	return &Dispatcher{session: session, runner: r, history: history}
}

func (d *Dispatcher) log() *logrus.Logger {
	return d.session.Logger()
}

// Dispatch runs cfg.Stage. The stage log is copied to cfg.OutputDir, when
// set, whatever the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg model.TrainingConfig) (err error) {
	if !cfg.Stage.Valid() {
		d.log().Errorf("Unknown stage %d", int(cfg.Stage))
		return fmt.Errorf("%w: %d", ErrUnknownStage, int(cfg.Stage))
	}
	if cfg.Stage >= model.StageCombineTessdata && cfg.OutputDir == "" {
		d.log().Errorf("Stage %d (%s) needs an output_dir", int(cfg.Stage), cfg.Stage)
		return fmt.Errorf("%w for stage %d", ErrOutputDirRequired, int(cfg.Stage))
	}

	scope, err := d.session.Open(cfg.Stage.String(), cfg.OutputDir)
	if err != nil {
		return err
	}
	run := d.startRun(ctx, cfg)
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		d.finishRun(ctx, run, scope.CopiedTo(), err)
	}()

	d.log().Infof("Stage %d: %s", int(cfg.Stage), cfg.Stage)
	switch cfg.Stage {
	case model.StageListFonts:
		_, err = stages.ListFonts(ctx, d.runner, cfg.FontsDir)
	case model.StageTesstrain:
		err = stages.Tesstrain(ctx, d.runner, TesstrainArgs(cfg))
	case model.StageCombineTessdata:
		var path string
		path, err = stages.CombineTessdata(ctx, d.runner, cfg.Lang, cfg.TessdataDir, cfg.OutputDir)
		if err == nil {
			d.log().Infof("Extracted %s", path)
		}
	case model.StageLSTMTraining:
		err = stages.LSTMTraining(ctx, d.runner, stages.LSTMTrainingParams{
			Lang:          cfg.Lang,
			NewLang:       cfg.NewLang,
			TessdataDir:   cfg.TessdataDir,
			OutputDir:     cfg.OutputDir,
			MaxIterations: cfg.MaxIterations,
		}, d.progressRecorder(ctx, run))
	case model.StageComposite:
		var path string
		path, err = stages.Composite(ctx, d.runner, stages.CompositeParams{
			Lang:        cfg.Lang,
			NewLang:     cfg.NewLang,
			TessdataDir: cfg.TessdataDir,
			OutputDir:   cfg.OutputDir,
			Checkpoint:  cfg.Checkpoint,
		})
		if err == nil {
			d.log().Infof("Wrote %s", path)
		}
	}
	if err != nil {
		d.log().Errorf("Stage %d (%s) failed: %v", int(cfg.Stage), cfg.Stage, err)
	}
	return err
}

// TesstrainArgs builds the stage 1 argument list. Each tesstrain_args entry
// is passed through unchanged as one argument after the generated ones;
// --linedata_only and --noextract_font_properties always come last.
func TesstrainArgs(cfg model.TrainingConfig) []string {
	args := []string{"--lang=" + cfg.Lang}
	if len(cfg.Fonts) > 0 {
		args = append(args, "--fontlist")
		args = append(args, cfg.Fonts...)
	}
	args = append(args,
		"--fonts_dir="+cfg.FontsDir,
		"--langdata_dir="+cfg.LangdataDir,
		"--tessdata_dir="+cfg.TessdataDir,
		"--training_text="+cfg.TrainingText,
		"--ptsize="+strconv.Itoa(cfg.Ptsize),
	)
	if cfg.OutputDir != "" {
		args = append(args, "--output_dir="+cfg.OutputDir)
	}
	if cfg.Workers > 0 {
		args = append(args, "--workers="+strconv.Itoa(cfg.Workers))
	}
	if cfg.SaveBoxTiff {
		args = append(args, "--save_box_tiff")
	}
	args = append(args, cfg.TesstrainArgs...)
	return append(args, "--linedata_only", "--noextract_font_properties")
}

type pendingRun struct {
	run model.Run
	ok  bool
}

func (d *Dispatcher) startRun(ctx context.Context, cfg model.TrainingConfig) pendingRun {
	if d.history == nil {
		return pendingRun{}
	}
	run, err := d.history.StartRun(ctx, model.Run{
		Stage:     cfg.Stage,
		Lang:      cfg.Lang,
		NewLang:   cfg.NewLang,
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		d.log().Warnf("Failed to record run: %v", err)
		return pendingRun{}
	}
	d.log().Debugf("Run %s", run.ID)
	return pendingRun{run: run, ok: true}
}

func (d *Dispatcher) finishRun(ctx context.Context, p pendingRun, logFile string, err error) {
	if !p.ok {
		return
	}
	run := p.run
	run.Status = model.RunSucceeded
	run.LogFile = logFile
	if err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
	}
	// Interrupted runs are still recorded.
	if ferr := d.history.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
		d.log().Warnf("Failed to record run result: %v", ferr)
	}
}

func (d *Dispatcher) progressRecorder(ctx context.Context, p pendingRun) func(model.Progress) {
	return func(progress model.Progress) {
		d.log().WithFields(logrus.Fields{
			"iteration": progress.Iteration,
			"bcer":      progress.BCER,
			"bwer":      progress.BWER,
		}).Debug("Training progress")
		if !p.ok {
			return
		}
		if err := d.history.AddProgress(ctx, p.run.ID, progress); err != nil {
			d.log().Warnf("Failed to record progress: %v", err)
		}
	}
}
