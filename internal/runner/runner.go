// Package runner executes the external Tesseract training tools.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	maxLineSize = 1024 * 1024
	tailLines   = 20
)

// Command is an external tool invocation. It is not modified after creation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env holds KEY=value pairs added to the inherited environment.
	Env []string
}

// NewCommand builds a Command from a tool name and its arguments.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: append([]string(nil), args...)}
}

// String renders the command line with shell-style quoting for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, arg := range c.Args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`|&;<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ExitError reports a tool that ran but exited with a non-zero status.
type ExitError struct {
	Command Command
	Code    int
	// Output holds the last lines the tool printed.
	Output string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command.Name, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// LineFunc observes one line of streamed tool output.
type LineFunc func(line string)

// Runner runs commands synchronously and logs what they print.
type Runner struct {
	// BinDir, when set, is the directory tool names are resolved in
	// instead of $PATH.
	BinDir string
	Log    logrus.FieldLogger
}

// New returns a Runner resolving tools in binDir (or $PATH when empty).
func New(binDir string, log logrus.FieldLogger) *Runner {
	return &Runner{BinDir: binDir, Log: log}
}

func (r *Runner) path(name string) string {
	if r.BinDir == "" || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	return filepath.Join(r.BinDir, name)
}

func (r *Runner) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.path(c.Name), c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

// Run executes c and blocks until it exits, streaming its combined
// stdout/stderr line by line to the log at info level and to observers.
func (r *Runner) Run(ctx context.Context, c Command, observers ...LineFunc) error {
	r.Log.Infof("Running %s", c)
	cmd := r.command(ctx, c)

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create output pipe for %s: %w", c.Name, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return fmt.Errorf("failed to start %s: %w", c.Name, err)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	last := newTail(tailLines)
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		last.add(line)
		r.Log.Info(line)
		for _, observe := range observers {
			observe(line)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep draining so the tool never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
	}
	_ = pr.Close()

	if err := r.wait(ctx, c, cmd.Wait(), last.String()); err != nil {
		return err
	}
	if scanErr != nil {
		return fmt.Errorf("failed to read %s output: %w", c.Name, scanErr)
	}
	return nil
}

// Output executes c, blocks until it exits and returns its stdout. Both
// streams are logged at debug level once the tool finishes.
func (r *Runner) Output(ctx context.Context, c Command) (string, error) {
	r.Log.Debugf("Running %s", c)
	cmd := r.command(ctx, c)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start %s: %w", c.Name, err)
	}
	waitErr := cmd.Wait()

	logLines(r.Log, stdout.String())
	logLines(r.Log, stderr.String())

	last := newTail(tailLines)
	for _, line := range splitLines(stderr.String()) {
		last.add(line)
	}
	if err := r.wait(ctx, c, waitErr, last.String()); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func (r *Runner) wait(ctx context.Context, c Command, err error, output string) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		r.Log.Errorf("%s failed with status %d", c.Name, exitErr.ExitCode())
		return &ExitError{Command: c, Code: exitErr.ExitCode(), Output: output, Err: err}
	}
	return fmt.Errorf("failed to run %s: %w", c.Name, err)
}

func logLines(log logrus.FieldLogger, text string) {
	for _, line := range splitLines(text) {
		log.Debug(line)
	}
}

func splitLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

type tail struct {
	lines []string
	limit int
}

func newTail(limit int) *tail {
	return &tail{limit: limit}
}

func (t *tail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tail) String() string {
	return strings.Join(t.lines, "\n")
}
