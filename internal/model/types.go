// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Stage selects which phase of the training pipeline to execute.
type Stage int

// Pipeline stages, in the order they are usually run.
const (
	StageListFonts Stage = iota
	StageTesstrain
	StageCombineTessdata
	StageLSTMTraining
	StageComposite
)

var stageNames = [...]string{
	"list_available_fonts",
	"tesstrain",
	"combine_tessdata",
	"lstmtraining",
	"composite",
}

// Valid reports whether s names an implemented stage.
func (s Stage) Valid() bool {
	return s >= StageListFonts && s <= StageComposite
}

// String returns the stage name, also used as its log file name.
func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Stages returns all implemented stages in order.
func Stages() []Stage {
	return []Stage{StageListFonts, StageTesstrain, StageCombineTessdata, StageLSTMTraining, StageComposite}
}

// TrainingConfig is the fully resolved set of parameters for a run.
// All directory and file fields hold absolute paths.
type TrainingConfig struct {
	Stage        Stage
	ConsoleLevel logrus.Level

	FontsDir     string
	Lang         string
	Fonts        []string
	LangdataDir  string
	TessdataDir  string
	TrainingText string
	OutputDir    string
	Ptsize       int
	SaveBoxTiff  bool
	// TesstrainArgs are passed through to stage 1 verbatim.
	TesstrainArgs []string

	NewLang       string
	MaxIterations int
	Checkpoint    string

	BinDir    string
	Workers   int
	HistoryDB string
}

// RunStatus describes the outcome of a recorded stage run.
type RunStatus string

// Run statuses.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one dispatched stage execution.
type Run struct {
	ID        string
	Stage     Stage
	Lang      string
	NewLang   string
	OutputDir string
	StartedAt time.Time
	EndedAt   time.Time
	Status    RunStatus
	Error     string
	LogFile   string
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Progress is a single lstmtraining progress report.
// Rates are percentages as printed by the tool.
type Progress struct {
	Iteration         int
	LearningIteration int
	TrainingIteration int
	MeanRMS           float64
	Delta             float64
	BCER              float64
	BWER              float64
	SkipRatio         float64
}

// RunFilter selects runs from the history.
type RunFilter struct {
	Stage *Stage
	Lang  string
	Since *time.Time
	Last  int
}
