package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfigTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.toml")
	content := `stage = 3
lang = "eng"
fonts = ["Arial", "Arial Bold"]
ptsize = 14
save_box_tiff = true
tesstrain_args = "--maxpages=2"
max_iterations = 400
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stage == nil || *cfg.Stage != 3 {
		t.Fatalf("unexpected stage: %v", cfg.Stage)
	}
	if cfg.Lang == nil || *cfg.Lang != "eng" {
		t.Fatalf("unexpected lang: %v", cfg.Lang)
	}
	if !reflect.DeepEqual([]string(cfg.Fonts), []string{"Arial", "Arial Bold"}) {
		t.Fatalf("unexpected fonts: %#v", cfg.Fonts)
	}
	if !reflect.DeepEqual([]string(cfg.TesstrainArgs), []string{"--maxpages=2"}) {
		t.Fatalf("unexpected tesstrain args: %#v", cfg.TesstrainArgs)
	}
	if cfg.SaveBoxTiff == nil || !*cfg.SaveBoxTiff {
		t.Fatalf("expected save_box_tiff")
	}
	if cfg.OutputDir != nil {
		t.Fatalf("expected unset output dir")
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")
	content := `stage: 2
lang: jpn
fonts: Noto Serif CJK JP
output_dir: /tmp/out
checkpoint:
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stage == nil || *cfg.Stage != 2 {
		t.Fatalf("unexpected stage: %v", cfg.Stage)
	}
	if !reflect.DeepEqual([]string(cfg.Fonts), []string{"Noto Serif CJK JP"}) {
		t.Fatalf("unexpected fonts: %#v", cfg.Fonts)
	}
	if cfg.Checkpoint != nil {
		t.Fatalf("expected null checkpoint to stay unset, got %q", *cfg.Checkpoint)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestApplyOverrides(t *testing.T) {
	lang := "jpn"
	cfg := FileConfig{Lang: &lang}
	err := ApplyOverrides(&cfg, []string{"stage=4", "ptsize=16", "fonts=[A, B C]", "new_lang=jpn_custom"})
	if err != nil {
		t.Fatalf("apply overrides: %v", err)
	}
	if cfg.Stage == nil || *cfg.Stage != 4 {
		t.Fatalf("unexpected stage: %v", cfg.Stage)
	}
	if cfg.Ptsize == nil || *cfg.Ptsize != 16 {
		t.Fatalf("unexpected ptsize: %v", cfg.Ptsize)
	}
	if !reflect.DeepEqual([]string(cfg.Fonts), []string{"A", "B C"}) {
		t.Fatalf("unexpected fonts: %#v", cfg.Fonts)
	}
	if cfg.Lang == nil || *cfg.Lang != "jpn" {
		t.Fatalf("override clobbered lang: %v", cfg.Lang)
	}
	if cfg.NewLang == nil || *cfg.NewLang != "jpn_custom" {
		t.Fatalf("unexpected new_lang: %v", cfg.NewLang)
	}
}

func TestApplyOverridesRejectsUnknownKey(t *testing.T) {
	var cfg FileConfig
	if err := ApplyOverrides(&cfg, []string{"langg=eng"}); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if err := ApplyOverrides(&cfg, []string{"lang"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}

func TestApplyOverridesKeepsLiteralValues(t *testing.T) {
	var cfg FileConfig
	err := ApplyOverrides(&cfg, []string{
		"output_dir=/tmp/out #1",
		"tesstrain_args=--vertical_fontlist=Noto Sans CJK JP",
		`lang="eng"`,
		"ptsize=14",
		"checkpoint=",
	})
	if err != nil {
		t.Fatalf("apply overrides: %v", err)
	}
	if cfg.OutputDir == nil || *cfg.OutputDir != "/tmp/out #1" {
		t.Fatalf("output_dir was altered: %v", cfg.OutputDir)
	}
	if !reflect.DeepEqual([]string(cfg.TesstrainArgs), []string{"--vertical_fontlist=Noto Sans CJK JP"}) {
		t.Fatalf("unexpected tesstrain args: %#v", cfg.TesstrainArgs)
	}
	if cfg.Lang == nil || *cfg.Lang != "eng" {
		t.Fatalf("unexpected lang: %v", cfg.Lang)
	}
	if cfg.Ptsize == nil || *cfg.Ptsize != 14 {
		t.Fatalf("unexpected ptsize: %v", cfg.Ptsize)
	}
	if cfg.Checkpoint != nil {
		t.Fatalf("expected empty checkpoint to stay unset, got %q", *cfg.Checkpoint)
	}
}

func TestApplyOverridesRejectsAlteredNumbers(t *testing.T) {
	var cfg FileConfig
	if err := ApplyOverrides(&cfg, []string{"ptsize=14 #big"}); err == nil {
		t.Fatalf("expected error for commented number, got ptsize %v", cfg.Ptsize)
	}
	if err := ApplyOverrides(&cfg, []string{"fonts=[A, B] #two"}); err == nil {
		t.Fatalf("expected error for commented list")
	}
}
