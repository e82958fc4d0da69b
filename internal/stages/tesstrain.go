package stages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/lstmtune/internal/runner"
)

// ErrLinedataRequired is returned when stage 1 is asked to produce legacy
// training data.
var ErrLinedataRequired = errors.New("--linedata_only is required since only LSTM is supported")

// ErrNoFonts is returned when no font was given to render.
var ErrNoFonts = errors.New("no fonts to render")

const (
	sampleText  = "Text\n"
	charSpacing = "0.0"
)

type renderJob struct {
	font     string
	exposure int
	vertical bool
}

// Tesstrain renders the training text with every font and exposure, builds
// the starter traineddata and writes the LSTM line data listed in
// <output_dir>/<lang>.training_files.txt.
func Tesstrain(ctx context.Context, r *runner.Runner, args []string) error {
	opts, err := ParseTesstrainArgs(args)
	if err != nil {
		return err
	}
	if !opts.Linedata {
		r.Log.Error(ErrLinedataRequired.Error())
		return ErrLinedataRequired
	}
	if len(opts.Fonts)+len(opts.VerticalFonts) == 0 {
		return ErrNoFonts
	}
	if err := requireInputs(opts.FontsDir, opts.TrainingText); err != nil {
		return err
	}
	if !opts.ExtractFontProperties {
		r.Log.Debug("Skipping font property extraction")
	}

	lang := languageParamsFor(opts.Lang)
	trainingDir, err := os.MkdirTemp(opts.TmpDir, opts.Lang+"-")
	if err != nil {
		return fmt.Errorf("failed to create training directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(trainingDir); err != nil {
			r.Log.Warnf("Failed to remove %s: %v", trainingDir, err)
		}
	}()
	fontConfigDir, err := os.MkdirTemp(opts.TmpDir, "font_tmp")
	if err != nil {
		return fmt.Errorf("failed to create fontconfig directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(fontConfigDir); err != nil {
			r.Log.Warnf("Failed to remove %s: %v", fontConfigDir, err)
		}
	}()
	r.Log.Infof("Training directory: %s", trainingDir)

	t := &tesstrain{r: r, opts: opts, lang: lang, trainingDir: trainingDir, fontConfigDir: fontConfigDir}
	steps := []func(context.Context) error{
		t.initFontconfig,
		t.renderImages,
		t.extractUnicharset,
		t.extractFeatures,
		t.combineLangModel,
		t.writeLineData,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

type tesstrain struct {
	r             *runner.Runner
	opts          TesstrainOptions
	lang          languageParams
	trainingDir   string
	fontConfigDir string
}

func (t *tesstrain) jobs() []renderJob {
	var jobs []renderJob
	for _, exposure := range t.opts.Exposures {
		for _, font := range t.opts.Fonts {
			jobs = append(jobs, renderJob{font: font, exposure: exposure})
		}
		for _, font := range t.opts.VerticalFonts {
			jobs = append(jobs, renderJob{font: font, exposure: exposure, vertical: true})
		}
	}
	return jobs
}

// initFontconfig renders a tiny sample once so text2image builds the
// fontconfig cache before the concurrent phase starts.
func (t *tesstrain) initFontconfig(ctx context.Context) error {
	t.r.Log.Info("=== Initializing font configuration cache ===")
	sample := filepath.Join(t.fontConfigDir, "sample_text.txt")
	if err := os.WriteFile(sample, []byte(sampleText), 0o644); err != nil {
		return fmt.Errorf("failed to write sample text: %w", err)
	}
	font := t.fontsOrdered()[0]
	return t.r.Run(ctx, runner.NewCommand("text2image",
		"--fonts_dir="+t.opts.FontsDir,
		"--font="+font,
		"--outputbase="+sample,
		"--text="+sample,
		"--fontconfig_tmpdir="+t.fontConfigDir,
	))
}

func (t *tesstrain) fontsOrdered() []string {
	return append(append([]string(nil), t.opts.Fonts...), t.opts.VerticalFonts...)
}

func (t *tesstrain) outputBase(job renderJob) string {
	name := strings.NewReplacer(" ", "_", ",", "").Replace(job.font)
	return filepath.Join(t.trainingDir, fmt.Sprintf("%s.%s.exp%d", t.opts.Lang, name, job.exposure))
}

func (t *tesstrain) renderImages(ctx context.Context) error {
	t.r.Log.Info("=== Phase I: Generating training images ===")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Workers)
	for _, job := range t.jobs() {
		g.Go(func() error {
			return t.render(gctx, job)
		})
	}
	return g.Wait()
}

func (t *tesstrain) render(ctx context.Context, job renderJob) error {
	base := t.outputBase(job)
	args := []string{
		"--fontconfig_tmpdir=" + t.fontConfigDir,
		"--fonts_dir=" + t.opts.FontsDir,
		"--strip_unrenderable_words",
		"--leading=" + strconv.Itoa(t.lang.leading),
		"--char_spacing=" + charSpacing,
		"--exposure=" + strconv.Itoa(job.exposure),
		"--outputbase=" + base,
		"--max_pages=" + strconv.Itoa(t.opts.MaxPages),
		"--ptsize=" + strconv.Itoa(t.opts.Ptsize),
	}
	if t.opts.DistortImage {
		args = append(args, "--distort_image")
	}
	if job.vertical {
		args = append(args, "--writing_mode=vertical-upright")
	}
	args = append(args, "--font="+job.font, "--text="+t.opts.TrainingText)
	if err := t.r.Run(ctx, runner.NewCommand("text2image", args...)); err != nil {
		return err
	}
	return requireOutputs(base+".box", base+".tif")
}

func (t *tesstrain) unicharset() string {
	return filepath.Join(t.trainingDir, t.opts.Lang+".unicharset")
}

func (t *tesstrain) extractUnicharset(ctx context.Context) error {
	t.r.Log.Info("=== Phase UP: Generating unicharset ===")
	boxes, err := glob(t.trainingDir, t.opts.Lang+".*.box")
	if err != nil {
		return err
	}
	if len(boxes) == 0 {
		return fmt.Errorf("%w: no box files in %s", ErrMissingOutput, t.trainingDir)
	}
	unicharset := t.unicharset()
	args := append([]string{
		"--output_unicharset", unicharset,
		"--norm_mode", strconv.Itoa(t.lang.normMode),
	}, boxes...)
	if err := t.r.Run(ctx, runner.NewCommand("unicharset_extractor", args...)); err != nil {
		return err
	}
	if err := requireOutputs(unicharset); err != nil {
		return err
	}
	if t.opts.LangdataDir == "" {
		return nil
	}
	xheights := filepath.Join(t.trainingDir, t.opts.Lang+".xheights")
	return t.r.Run(ctx, runner.NewCommand("set_unicharset_properties",
		"-U", unicharset,
		"-O", unicharset,
		"-X", xheights,
		"--script_dir="+t.opts.LangdataDir,
	))
}

func (t *tesstrain) extractFeatures(ctx context.Context) error {
	t.r.Log.Info("=== Phase E: Generating lstmf files ===")
	images, err := glob(t.trainingDir, t.opts.Lang+".*.exp*.tif")
	if err != nil {
		return err
	}
	var config []string
	if t.opts.LangdataDir != "" {
		langConfig := filepath.Join(t.opts.LangdataDir, t.opts.Lang, t.opts.Lang+".config")
		if _, err := os.Stat(langConfig); err == nil {
			config = append(config, langConfig)
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Workers)
	for _, image := range images {
		g.Go(func() error {
			base := strings.TrimSuffix(image, filepath.Ext(image))
			args := append([]string{image, base, "--psm", "6", "lstm.train"}, config...)
			c := runner.NewCommand("tesseract", args...)
			if t.opts.TessdataDir != "" {
				c.Env = []string{"TESSDATA_PREFIX=" + t.opts.TessdataDir}
			}
			if err := t.r.Run(gctx, c); err != nil {
				return err
			}
			return requireOutputs(base + ".lstmf")
		})
	}
	return g.Wait()
}

func (t *tesstrain) combineLangModel(ctx context.Context) error {
	t.r.Log.Info("=== Constructing LSTM training data ===")
	if err := os.MkdirAll(t.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	args := []string{
		"--input_unicharset", t.unicharset(),
		"--output_dir", t.opts.OutputDir,
		"--lang", t.opts.Lang,
	}
	if t.opts.LangdataDir != "" {
		args = append(args, "--script_dir", t.opts.LangdataDir)
		prefix := filepath.Join(t.opts.LangdataDir, t.opts.Lang, t.opts.Lang)
		for _, opt := range []struct{ flag, path string }{
			{"--words", t.opts.Wordlist},
			{"--numbers", prefix + ".numbers"},
			{"--puncs", prefix + ".punc"},
		} {
			if _, err := os.Stat(opt.path); err == nil {
				args = append(args, opt.flag, opt.path)
			}
		}
	}
	if t.lang.rtl {
		args = append(args, "--lang_is_rtl")
	}
	if t.lang.normMode >= normGraphemes {
		args = append(args, "--pass_through_recoder")
	}
	if err := t.r.Run(ctx, runner.NewCommand("combine_lang_model", args...)); err != nil {
		return err
	}
	return requireOutputs(filepath.Join(t.opts.OutputDir, t.opts.Lang, t.opts.Lang+".traineddata"))
}

func (t *tesstrain) writeLineData(context.Context) error {
	lstmf, err := glob(t.trainingDir, t.opts.Lang+".*.lstmf")
	if err != nil {
		return err
	}
	files := lstmf
	if t.opts.SaveBoxTiff {
		for _, pattern := range []string{".*.box", ".*.tif"} {
			more, err := glob(t.trainingDir, t.opts.Lang+pattern)
			if err != nil {
				return err
			}
			files = append(files, more...)
		}
	}
	t.r.Log.Infof("Moving %d files to %s", len(files), t.opts.OutputDir)
	if err := copyInto(t.opts.OutputDir, files); err != nil {
		return err
	}

	copied, err := glob(t.opts.OutputDir, t.opts.Lang+".*.lstmf")
	if err != nil {
		return err
	}
	listFile := filepath.Join(t.opts.OutputDir, t.opts.Lang+".training_files.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(copied, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write training file list: %w", err)
	}
	t.r.Log.Infof("Created %s", listFile)
	return nil
}
