// Package logging provides the per-run logger and per-stage log file scopes.
//
// A Session owns one logrus logger whose own output is discarded; records
// reach the console and the stage log files through hooks. Each stage opens
// a Scope that attaches a DEBUG file hook for its duration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Session is the logging state of one run.
type Session struct {
	logger  *logrus.Logger
	console *writerHook
}

// NewSession returns a session whose console hook writes records at or above
// consoleLevel to w.
func NewSession(consoleLevel logrus.Level, w io.Writer) *Session {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if consoleLevel > logrus.DebugLevel {
		logger.SetLevel(consoleLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}
	console := &writerHook{
		writer:    w,
		levels:    levelsUpTo(consoleLevel),
		formatter: newConsoleFormatter(w, isTerminal(w)),
	}
	logger.AddHook(console)
	return &Session{logger: logger, console: console}
}

// Logger returns the session logger.
func (s *Session) Logger() *logrus.Logger {
	return s.logger
}

// Open attaches a DEBUG log file named <name>.log, kept in a fresh
// temporary directory. When outputDir is non-empty the file is copied there
// on Close.
func (s *Session) Open(name, outputDir string) (*Scope, error) {
	tmpDir, err := os.MkdirTemp("", "lstmtune-"+name+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(tmpDir, name+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	hook := &writerHook{
		writer:    file,
		closer:    file,
		levels:    levelsUpTo(logrus.TraceLevel),
		formatter: &fileFormatter{name: name},
	}
	s.logger.AddHook(hook)
	return &Scope{
		session:   s,
		hook:      hook,
		tmpDir:    tmpDir,
		path:      path,
		outputDir: outputDir,
	}, nil
}

func (s *Session) detach(target logrus.Hook) {
	hooks := make(logrus.LevelHooks)
	for level, list := range s.logger.Hooks {
		for _, h := range list {
			if h != target {
				hooks[level] = append(hooks[level], h)
			}
		}
	}
	s.logger.ReplaceHooks(hooks)
}

func (s *Session) attached(target logrus.Hook) bool {
	for _, list := range s.logger.Hooks {
		for _, h := range list {
			if h == target {
				return true
			}
		}
	}
	return false
}

// Scope is an attached stage log file. Close must be called exactly when
// the stage is over, whatever its outcome.
type Scope struct {
	session   *Session
	hook      *writerHook
	tmpDir    string
	path      string
	outputDir string
	copied    string
	closed    bool
}

// Path returns the temporary log file path. It is removed by Close.
func (s *Scope) Path() string {
	return s.path
}

// CopiedTo returns where Close copied the log file, or "".
func (s *Scope) CopiedTo() string {
	return s.copied
}

// Close detaches and closes the log file, copies it to the output
// directory when one was given and removes the temporary directory.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.session.detach(s.hook)

	var errs []error
	if err := s.hook.close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}
	if s.outputDir != "" {
		dest := filepath.Join(s.outputDir, filepath.Base(s.path))
		if err := copyFile(s.path, dest); err != nil {
			errs = append(errs, fmt.Errorf("failed to copy log file: %w", err))
		} else {
			s.copied = dest
		}
	}
	if err := os.RemoveAll(s.tmpDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove log directory: %w", err))
	}
	return errors.Join(errs...)
}

type writerHook struct {
	mu        sync.Mutex
	writer    io.Writer
	closer    io.Closer
	levels    []logrus.Level
	formatter logrus.Formatter
	closed    bool
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	_, err = h.writer.Write(line)
	return err
}

func (h *writerHook) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

func levelsUpTo(limit logrus.Level) []logrus.Level {
	var levels []logrus.Level
	for _, level := range logrus.AllLevels {
		if level <= limit {
			levels = append(levels, level)
		}
	}
	return levels
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
