package stages

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// TesstrainOptions configure the training data generation stage.
type TesstrainOptions struct {
	Lang          string
	Fonts         []string
	VerticalFonts []string
	FontsDir      string
	LangdataDir   string
	TessdataDir   string
	TrainingText  string
	Wordlist      string
	OutputDir     string
	TmpDir        string
	MaxPages      int
	Exposures     []int
	Ptsize        int
	Workers       int

	SaveBoxTiff           bool
	Linedata              bool
	DistortImage          bool
	ExtractFontProperties bool
}

// Defaults used when tesstrain arguments leave a value unset.
const (
	defaultTesstrainOutputDir = "/tmp/tesstrain/tessdata"
	defaultTesstrainPtsize    = 12
	defaultTesstrainWorkers   = 8
)

// listFlags take one or more values, either "--fontlist A B" or
// "--fontlist=A". Each occurrence replaces the values of an earlier one.
var listFlags = map[string]bool{
	"fontlist":          true,
	"vertical_fontlist": true,
	"exposures":         true,
}

// ParseTesstrainArgs parses tesstrain style arguments such as
// "--lang=jpn --fontlist Arial Courier --linedata_only". Later values win,
// so pass through arguments appended at the end override generated ones.
func ParseTesstrainArgs(args []string) (TesstrainOptions, error) {
	var opts TesstrainOptions
	var noExtract bool
	args, lists, err := extractListFlags(args)
	if err != nil {
		return TesstrainOptions{}, fmt.Errorf("invalid tesstrain arguments: %w", err)
	}
	fs := pflag.NewFlagSet("tesstrain", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Lang, "lang", "", "language code to train")
	fs.StringVar(&opts.FontsDir, "fonts_dir", "", "directory searched for fonts")
	fs.StringVar(&opts.LangdataDir, "langdata_dir", "", "langdata directory")
	fs.StringVar(&opts.TessdataDir, "tessdata_dir", os.Getenv("TESSDATA_PREFIX"), "tessdata directory")
	fs.StringVar(&opts.TrainingText, "training_text", "", "text to render")
	fs.StringVar(&opts.Wordlist, "wordlist", "", "word list for the language model")
	fs.StringVar(&opts.OutputDir, "output_dir", defaultTesstrainOutputDir, "destination of the training files")
	fs.StringVar(&opts.TmpDir, "tmp_dir", "", "parent of the temporary training directory")
	fs.IntVar(&opts.MaxPages, "maxpages", 0, "pages rendered per font (0 = all)")
	fs.IntVar(&opts.Ptsize, "ptsize", defaultTesstrainPtsize, "render size in points")
	fs.IntVar(&opts.Workers, "workers", defaultTesstrainWorkers, "concurrent tool processes")
	fs.BoolVar(&opts.SaveBoxTiff, "save_box_tiff", false, "keep box/tiff pairs in the output directory")
	fs.BoolVar(&opts.Linedata, "linedata_only", false, "only generate LSTM line data")
	fs.BoolVar(&opts.DistortImage, "distort_image", false, "apply random image degradation")
	fs.BoolVar(&opts.ExtractFontProperties, "extract_font_properties", true, "extract font properties")
	fs.BoolVar(&noExtract, "noextract_font_properties", false, "skip font property extraction")

	if err := fs.Parse(args); err != nil {
		return TesstrainOptions{}, fmt.Errorf("invalid tesstrain arguments: %w", err)
	}
	if fs.NArg() > 0 {
		return TesstrainOptions{}, fmt.Errorf("unexpected tesstrain arguments: %v", fs.Args())
	}
	if noExtract {
		opts.ExtractFontProperties = false
	}
	opts.Fonts = lists["fontlist"]
	opts.VerticalFonts = lists["vertical_fontlist"]
	if opts.Exposures, err = parseExposures(lists["exposures"]); err != nil {
		return TesstrainOptions{}, fmt.Errorf("invalid tesstrain arguments: %w", err)
	}
	if opts.Lang == "" {
		return TesstrainOptions{}, fmt.Errorf("--lang is required")
	}
	if opts.LangdataDir != "" {
		prefix := filepath.Join(opts.LangdataDir, opts.Lang, opts.Lang)
		if opts.TrainingText == "" {
			opts.TrainingText = prefix + ".training_text"
		}
		if opts.Wordlist == "" {
			opts.Wordlist = prefix + ".wordlist"
		}
	}
	if opts.TmpDir == "" {
		opts.TmpDir = os.TempDir()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return opts, nil
}

// extractListFlags removes the list flags from args and returns their values.
func extractListFlags(args []string) ([]string, map[string][]string, error) {
	rest := make([]string, 0, len(args))
	lists := make(map[string][]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, inline := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !strings.HasPrefix(arg, "--") || !listFlags[name] {
			rest = append(rest, arg)
			continue
		}
		if inline {
			lists[name] = []string{value}
			continue
		}
		var values []string
		for i+1 < len(args) && !isFlagArg(args[i+1]) {
			i++
			values = append(values, args[i])
		}
		if len(values) == 0 {
			return nil, nil, fmt.Errorf("--%s expects at least one value", name)
		}
		lists[name] = values
	}
	return rest, lists, nil
}

// isFlagArg reports whether arg starts a new flag. Negative numbers such as
// the exposure "-1" are values.
func isFlagArg(arg string) bool {
	if strings.HasPrefix(arg, "--") {
		return true
	}
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	_, err := strconv.Atoi(arg)
	return err != nil
}

// parseExposures accepts separate values and comma lists ("-1,0,1").
func parseExposures(values []string) ([]int, error) {
	if len(values) == 0 {
		return []int{0}, nil
	}
	var exposures []int
	for _, value := range values {
		for _, field := range strings.Split(value, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("invalid exposure %q", field)
			}
			exposures = append(exposures, n)
		}
	}
	return exposures, nil
}
