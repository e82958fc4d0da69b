// Package main provides the CLI entrypoint for lstmtune.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/lstmtune/internal/config"
	"github.com/verte-zerg/lstmtune/internal/evaluate"
	"github.com/verte-zerg/lstmtune/internal/evaluate/tess"
	"github.com/verte-zerg/lstmtune/internal/historyui"
	"github.com/verte-zerg/lstmtune/internal/logging"
	"github.com/verte-zerg/lstmtune/internal/model"
	"github.com/verte-zerg/lstmtune/internal/pipeline"
	"github.com/verte-zerg/lstmtune/internal/runner"
	"github.com/verte-zerg/lstmtune/internal/stats"
	"github.com/verte-zerg/lstmtune/internal/store"
)

const (
	defaultCurveWindow = 10
	anyStage           = -1
)

var (
	trainConfigPath   string
	trainStage        int
	trainConsoleLevel string

	historyDB          string
	historyStage       int
	historyLang        string
	historySince       string
	historyLast        int
	historyTUI         bool
	historyCurveWindow int

	evalDir string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lstmtune [key=value ...]",
		Short:         "Run one stage of the Tesseract LSTM fine-tuning pipeline",
		Long:          stageHelp(),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrainCmd,
	}
	addTrainingFlags(rootCmd)
	rootCmd.Flags().IntVar(&trainStage, "stage", 0, "stage to run (0-4)")
	rootCmd.Flags().StringVar(&trainConsoleLevel, "console-level", "", "console log level (debug, info, warning, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newEvalCmd())

	return rootCmd
}

func addTrainingFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&trainConfigPath, "config", config.DefaultConfigPath(), "training config file (.toml, .yaml)")
}

func stageHelp() string {
	lines := []string{"Stages:"}
	for _, stage := range model.Stages() {
		lines = append(lines, fmt.Sprintf("  %d  %s", int(stage), stage))
	}
	lines = append(lines, "", "Config values can be overridden with key=value arguments, e.g. lang=eng ptsize=14.")
	return strings.Join(lines, "\n")
}

func runTrainCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadTrainingConfig(cmd, args)
	if err != nil {
		return err
	}
	if !cfg.Stage.Valid() {
		return fmt.Errorf("--stage must be between 0 and 4, got %d", int(cfg.Stage))
	}

	session := logging.NewSession(cfg.ConsoleLevel, os.Stderr)
	r := runner.New(cfg.BinDir, session.Logger())

	var history pipeline.History
	st, err := store.Open(cfg.HistoryDB)
	if err != nil {
		logErrf("failed to open history db, run will not be recorded: %v\n", err)
	} else {
		history = st
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return pipeline.New(session, r, history).Dispatch(ctx, cfg)
}

// loadTrainingConfig reads the config file, applies key=value overrides and
// then flags given on the command line.
func loadTrainingConfig(cmd *cobra.Command, overrides []string) (model.TrainingConfig, error) {
	fileCfg, err := config.LoadConfig(trainConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logErrf("Create one with: lstmtune config %s\n", trainConfigPath)
		}
		return model.TrainingConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyOverrides(&fileCfg, overrides); err != nil {
		return model.TrainingConfig{}, err
	}
	if cmd.Flags().Lookup("stage") != nil {
		stage := trainStage
		applyIntConfig(cmd, "stage", &stage, fileCfg.Stage)
		fileCfg.Stage = &stage
	}
	if cmd.Flags().Lookup("console-level") != nil {
		level := trainConsoleLevel
		applyStringConfig(cmd, "console-level", &level, fileCfg.ConsoleLevel)
		fileCfg.ConsoleLevel = &level
	}
	return config.Resolve(fileCfg, config.ProgramDir())
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [path]",
		Short: "Create/open a training config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, args []string) error {
	path := config.DefaultConfigPath()
	if len(args) == 1 {
		path = args[0]
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logErrf("Wrote %s\n", path)
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded stage runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyDB, "db", config.DefaultHistoryDBPath(), "history database")
	cmd.Flags().IntVar(&historyStage, "stage", anyStage, "stage filter (0-4)")
	cmd.Flags().StringVar(&historyLang, "lang", "", "language filter (lang or new_lang)")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N runs")
	cmd.Flags().BoolVar(&historyTUI, "tui", term.IsTerminal(int(os.Stdout.Fd())), "open the interactive browser")
	cmd.Flags().IntVar(&historyCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	filter, err := historyFilter()
	if err != nil {
		return err
	}
	if historyCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	st, err := store.Open(historyDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyTUI {
		ui := historyui.NewModel(st, historyui.Config{Filter: filter, CurveWindow: historyCurveWindow})
		program := tea.NewProgram(ui, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(cmd.Context(), st, filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderRuns(out, report.Runs, time.Now()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for _, run := range report.Runs {
		progress, ok := report.Progress[run.ID]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(out, "\n%s %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04"), run.Stage, run.NewLang); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderProgress(out, progress, historyCurveWindow, 60); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func historyFilter() (model.RunFilter, error) {
	filter := model.RunFilter{Lang: strings.TrimSpace(historyLang), Last: historyLast}
	if historyLast < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	if historyStage != anyStage {
		stage := model.Stage(historyStage)
		if !stage.Valid() {
			return filter, fmt.Errorf("--stage must be between 0 and 4")
		}
		filter.Stage = &stage
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	return filter, nil
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval --dir <ground truth dir> [key=value ...]",
		Short: "Measure the composed model on ground truth line images",
		RunE:  runEvalCmd,
	}
	addTrainingFlags(cmd)
	cmd.Flags().StringVar(&evalDir, "dir", "", "directory of line images with .gt.txt files")
	if err := cmd.MarkFlagRequired("dir"); err != nil {
		panic(err)
	}
	return cmd
}

func runEvalCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadTrainingConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.OutputDir == "" {
		return pipeline.ErrOutputDirRequired
	}
	session := logging.NewSession(cfg.ConsoleLevel, os.Stderr)
	log := session.Logger()

	samples, err := evaluate.CollectSamples(evalDir)
	if err != nil {
		return err
	}
	log.Infof("Evaluating %s.traineddata on %d samples", cfg.NewLang, len(samples))
	rec, err := tess.New(cfg.OutputDir, cfg.NewLang)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rec.Close(); cerr != nil {
			logErrf("failed to close recognizer: %v\n", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := evaluate.Evaluate(ctx, rec, samples, log)
	if err != nil {
		return err
	}
	if err := report.Render(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if cmd.Flags().Changed(name) {
		return
	}
	if value != nil {
		*target = *value
	}
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if cmd.Flags().Changed(name) {
		return
	}
	if value != nil {
		*target = *value
	}
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# lstmtune training config
# Every value is optional. Relative paths are resolved against the
# working directory; unset directories default to folders next to the binary.

# Stage to run: 0 list fonts, 1 tesstrain, 2 combine_tessdata,
# 3 lstmtraining, 4 composite. --stage overrides it.
stage = 0
console_level = "info"

lang = %q
# new_lang = "new_%s"
# fonts = ["Noto Serif CJK JP"]
# fonts_dir = "fonts"
# langdata_dir = "langdata"
# tessdata_dir = "tessdata_best"
# training_text = "langdata/%s/%s.training_text"
output_dir = "output"
ptsize = %d
save_box_tiff = false
# Extra tesstrain arguments, one argument per entry. List flags take the
# entries that follow them: ["--vertical_fontlist", "Noto Sans CJK JP"].
# tesstrain_args = ["--maxpages=10", "--exposures", "-1", "0", "1"]

# max_iterations = 400
# checkpoint = "new_%s_checkpoint"

# Directory holding text2image, lstmtraining, ... (default: $PATH)
# bin_dir = "/usr/local/bin"
workers = %d
# history_db = "/var/lib/lstmtune/history.db"
`,
		config.DefaultLang,
		config.DefaultLang,
		config.DefaultLang, config.DefaultLang,
		config.DefaultPtsize,
		config.DefaultLang,
		config.DefaultWorkers,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
