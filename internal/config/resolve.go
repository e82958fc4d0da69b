package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/lstmtune/internal/model"
)

// Defaults applied by Resolve.
const (
	DefaultLang      = "jpn"
	DefaultPtsize    = 12
	DefaultWorkers   = 8
	fontsSubdir      = "fonts"
	langdataSubdir   = "langdata"
	tessdataSubdir   = "tessdata_best"
	newLangPrefix    = "new_"
	checkpointSuffix = "_checkpoint"
)

// Resolve turns a loosely populated file config into a TrainingConfig.
// Unset values are defaulted relative to baseDir, relative paths are made
// absolute and the output directory is created when one is configured.
func Resolve(fc FileConfig, baseDir string) (model.TrainingConfig, error) {
	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return model.TrainingConfig{}, fmt.Errorf("failed to resolve base dir: %w", err)
	}

	cfg := model.TrainingConfig{
		Stage:         model.Stage(intOr(fc.Stage, 0)),
		ConsoleLevel:  ParseConsoleLevel(str(fc.ConsoleLevel)),
		Lang:          strOr(fc.Lang, DefaultLang),
		Fonts:         nonEmpty(fc.Fonts),
		Ptsize:        intOr(fc.Ptsize, DefaultPtsize),
		SaveBoxTiff:   fc.SaveBoxTiff != nil && *fc.SaveBoxTiff,
		TesstrainArgs: nonEmpty(fc.TesstrainArgs),
		MaxIterations: intOr(fc.MaxIterations, 0),
		Workers:       intOr(fc.Workers, DefaultWorkers),
	}

	paths := []struct {
		target *string
		value  *string
		def    string
	}{
		{&cfg.FontsDir, fc.FontsDir, filepath.Join(baseDir, fontsSubdir)},
		{&cfg.LangdataDir, fc.LangdataDir, filepath.Join(baseDir, langdataSubdir)},
		{&cfg.TessdataDir, fc.TessdataDir, filepath.Join(baseDir, tessdataSubdir)},
		{&cfg.OutputDir, fc.OutputDir, ""},
		{&cfg.BinDir, fc.BinDir, ""},
		{&cfg.HistoryDB, fc.HistoryDB, DefaultHistoryDBPath()},
	}
	for _, p := range paths {
		if *p.target, err = absOr(p.value, p.def); err != nil {
			return model.TrainingConfig{}, err
		}
	}

	// The training text default depends on the resolved langdata dir and lang.
	cfg.TrainingText, err = absOr(fc.TrainingText, filepath.Join(cfg.LangdataDir, cfg.Lang, cfg.Lang+".training_text"))
	if err != nil {
		return model.TrainingConfig{}, err
	}

	cfg.NewLang = strOr(fc.NewLang, newLangPrefix+cfg.Lang)
	cfg.Checkpoint = strOr(fc.Checkpoint, cfg.NewLang+checkpointSuffix)

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return model.TrainingConfig{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return cfg, nil
}

// ParseConsoleLevel maps a level name to a logrus level. Empty or unknown
// names fall back to info.
func ParseConsoleLevel(name string) logrus.Level {
	name = strings.TrimSpace(name)
	if name == "" {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func absOr(value *string, def string) (string, error) {
	p := strOr(value, def)
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", p, err)
	}
	return abs, nil
}

func str(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func strOr(value *string, def string) string {
	if v := strings.TrimSpace(str(value)); v != "" {
		return v
	}
	return def
}

func intOr(value *int, def int) int {
	if value == nil || *value == 0 {
		return def
	}
	return *value
}

func nonEmpty(list StringList) []string {
	var out []string
	for _, item := range list {
		if strings.TrimSpace(item) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
