// Package config provides configuration loading, overrides and resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents a training configuration file. Nil fields are unset.
type FileConfig struct {
	Stage        *int    `toml:"stage" yaml:"stage"`
	ConsoleLevel *string `toml:"console_level" yaml:"console_level"`

	FontsDir      *string    `toml:"fonts_dir" yaml:"fonts_dir"`
	Lang          *string    `toml:"lang" yaml:"lang"`
	Fonts         StringList `toml:"fonts" yaml:"fonts"`
	LangdataDir   *string    `toml:"langdata_dir" yaml:"langdata_dir"`
	TessdataDir   *string    `toml:"tessdata_dir" yaml:"tessdata_dir"`
	TrainingText  *string    `toml:"training_text" yaml:"training_text"`
	OutputDir     *string    `toml:"output_dir" yaml:"output_dir"`
	Ptsize        *int       `toml:"ptsize" yaml:"ptsize"`
	SaveBoxTiff   *bool      `toml:"save_box_tiff" yaml:"save_box_tiff"`
	TesstrainArgs StringList `toml:"tesstrain_args" yaml:"tesstrain_args"`

	NewLang       *string `toml:"new_lang" yaml:"new_lang"`
	MaxIterations *int    `toml:"max_iterations" yaml:"max_iterations"`
	Checkpoint    *string `toml:"checkpoint" yaml:"checkpoint"`

	BinDir    *string `toml:"bin_dir" yaml:"bin_dir"`
	Workers   *int    `toml:"workers" yaml:"workers"`
	HistoryDB *string `toml:"history_db" yaml:"history_db"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalTOML implements toml.Unmarshaler.
func (l *StringList) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case string:
		*l = StringList{v}
	case []any:
		out := make(StringList, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string list item, got %T", item)
			}
			out = append(out, s)
		}
		*l = out
	default:
		return fmt.Errorf("expected string or list of strings, got %T", value)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// LoadConfig reads a TOML or YAML config, chosen by file extension.
// Unlike the user-level defaults file, an explicitly named config must exist.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return cfg, nil
}

// ApplyOverrides applies key=value overrides onto cfg. Values are YAML
// scalars or flow sequences, so "ptsize=14" and "fonts=[A, B]" both work.
func ApplyOverrides(cfg *FileConfig, overrides []string) error {
	for _, ov := range overrides {
		key, value, ok := strings.Cut(ov, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid override %q (expected key=value)", ov)
		}
		if !knownKey(key) {
			return fmt.Errorf("unknown config key %q", key)
		}
		node, err := overrideValue(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("failed to apply override %q: %w", ov, err)
		}
		doc := &yaml.Node{
			Kind:    yaml.MappingNode,
			Content: []*yaml.Node{stringNode(key), node},
		}
		if err := doc.Decode(cfg); err != nil {
			return fmt.Errorf("failed to apply override %q: %w", ov, err)
		}
	}
	return nil
}

// overrideValue parses an override value as YAML. A plain value that YAML
// would alter, such as "/tmp/out #1" losing its comment, is kept verbatim
// as a string.
func overrideValue(value string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}, nil
	}
	node := doc.Content[0]
	switch {
	case node.Kind == yaml.MappingNode:
		return stringNode(value), nil
	case hasComment(&doc):
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("unexpected comment in list value")
		}
		return stringNode(value), nil
	case node.Kind == yaml.ScalarNode && node.Style == 0 && node.Value != value:
		return stringNode(value), nil
	}
	return node, nil
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func hasComment(node *yaml.Node) bool {
	if node.HeadComment != "" || node.LineComment != "" || node.FootComment != "" {
		return true
	}
	for _, child := range node.Content {
		if hasComment(child) {
			return true
		}
	}
	return false
}

func knownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Keys lists the recognised configuration keys in file order.
func Keys() []string {
	return []string{
		"stage", "console_level",
		"fonts_dir", "lang", "fonts", "langdata_dir", "tessdata_dir",
		"training_text", "output_dir", "ptsize", "save_box_tiff", "tesstrain_args",
		"new_lang", "max_iterations", "checkpoint",
		"bin_dir", "workers", "history_db",
	}
}
