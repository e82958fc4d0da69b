package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/lstmtune/internal/model"
)

func writeTrainingConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "train.toml")
	content := "stage = 3\nconsole_level = \"warning\"\noutput_dir = \"" + filepath.Join(dir, "out") + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func loadWithArgs(t *testing.T, flags, overrides []string) model.TrainingConfig {
	t.Helper()
	cmd := newRootCmd()
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := loadTrainingConfig(cmd, overrides)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestStageFromConfigFile(t *testing.T) {
	path := writeTrainingConfig(t)
	cfg := loadWithArgs(t, []string{"--config", path}, nil)
	if cfg.Stage != model.StageLSTMTraining {
		t.Fatalf("expected stage 3, got %d", cfg.Stage)
	}
	if cfg.ConsoleLevel != logrus.WarnLevel {
		t.Fatalf("unexpected console level: %v", cfg.ConsoleLevel)
	}
}

func TestExplicitStageZeroOverridesConfig(t *testing.T) {
	path := writeTrainingConfig(t)
	cfg := loadWithArgs(t, []string{"--config", path, "--stage", "0"}, nil)
	if cfg.Stage != model.StageListFonts {
		t.Fatalf("expected stage 0, got %d", cfg.Stage)
	}
}

func TestOverrideArgs(t *testing.T) {
	path := writeTrainingConfig(t)
	cfg := loadWithArgs(t, []string{"--config", path, "--console-level", "debug"}, []string{"stage=2", "lang=eng"})
	if cfg.Stage != model.StageCombineTessdata || cfg.Lang != "eng" || cfg.NewLang != "new_eng" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ConsoleLevel != logrus.DebugLevel {
		t.Fatalf("unexpected console level: %v", cfg.ConsoleLevel)
	}
}

func TestMissingConfigFile(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := loadTrainingConfig(cmd, nil); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestHistoryFilter(t *testing.T) {
	historyStage, historyLang, historySince, historyLast = 3, " jpn ", "2026-01-02", 5
	t.Cleanup(func() {
		historyStage, historyLang, historySince, historyLast = anyStage, "", "", 0
	})
	filter, err := historyFilter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if filter.Stage == nil || *filter.Stage != model.StageLSTMTraining || filter.Lang != "jpn" || filter.Last != 5 {
		t.Fatalf("unexpected filter: %+v", filter)
	}
	if filter.Since == nil || filter.Since.Day() != 2 {
		t.Fatalf("unexpected since: %v", filter.Since)
	}

	historyStage = 9
	if _, err := historyFilter(); err == nil {
		t.Fatalf("expected error for stage 9")
	}
}

func TestConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	t.Chdir(t.TempDir())
	cfg := loadWithArgs(t, []string{"--config", path}, nil)
	if cfg.Lang != "jpn" || cfg.Ptsize != 12 || !strings.HasSuffix(cfg.OutputDir, "output") {
		t.Fatalf("unexpected template config: %+v", cfg)
	}
}
