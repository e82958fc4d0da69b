package stages

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/verte-zerg/lstmtune/internal/runner"
)

// ListFonts asks text2image which fonts in fontsDir it can render and
// returns their names sorted.
func ListFonts(ctx context.Context, r *runner.Runner, fontsDir string) ([]string, error) {
	if err := requireInputs(fontsDir); err != nil {
		return nil, err
	}
	tmpDir, err := os.MkdirTemp("", "font_tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create fontconfig directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	out, err := r.Output(ctx, runner.NewCommand("text2image",
		"--list_available_fonts",
		"--fontconfig_tmpdir="+tmpDir,
		"--fonts_dir="+fontsDir,
	))
	if err != nil {
		return nil, err
	}
	fonts := parseFontList(out)
	sort.Strings(fonts)
	r.Log.Infof("%d fonts available in %s", len(fonts), fontsDir)
	for _, font := range fonts {
		r.Log.Info(font)
	}
	return fonts, nil
}

// parseFontList reads "  3: Noto Sans CJK JP Bold" lines.
func parseFontList(out string) []string {
	var fonts []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx, name, ok := strings.Cut(line, ":"); ok && isNumber(idx) {
			line = strings.TrimSpace(name)
		}
		if line != "" {
			fonts = append(fonts, line)
		}
	}
	return fonts
}

func isNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
