package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/verte-zerg/lstmtune/internal/faketool"
)

func newTestRunner(t *testing.T) (*Runner, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(faketool.Dir(t), logger), hook
}

func TestRunStreamsLines(t *testing.T) {
	r, hook := newTestRunner(t)
	faketool.Write(t, r.BinDir, "echoer", `echo "first $1"
echo "second" 1>&2`)

	var seen []string
	err := r.Run(context.Background(), NewCommand("echoer", "arg"), func(line string) {
		seen = append(seen, line)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(seen) != 2 || seen[0] != "first arg" || seen[1] != "second" {
		t.Fatalf("unexpected observed lines: %#v", seen)
	}
	var infos int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.InfoLevel {
			infos++
		}
	}
	if infos != 3 {
		t.Fatalf("expected command line plus 2 output lines at info, got %d", infos)
	}
}

func TestOutputReturnsStdout(t *testing.T) {
	r, hook := newTestRunner(t)
	faketool.Write(t, r.BinDir, "lister", `echo one
echo two
echo noise 1>&2`)

	out, err := r.Output(context.Background(), NewCommand("lister"))
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if out != "one\ntwo\n" {
		t.Fatalf("unexpected stdout %q", out)
	}
	for _, entry := range hook.AllEntries() {
		if entry.Level != logrus.DebugLevel {
			t.Fatalf("expected only debug entries, got %v: %s", entry.Level, entry.Message)
		}
	}
}

func TestRunPropagatesExitStatus(t *testing.T) {
	r, _ := newTestRunner(t)
	faketool.Write(t, r.BinDir, "broken", `echo "bad input" 1>&2
exit 3`)

	for name, run := range map[string]func() error{
		"run": func() error { return r.Run(context.Background(), NewCommand("broken")) },
		"output": func() error {
			_, err := r.Output(context.Background(), NewCommand("broken"))
			return err
		},
	} {
		err := run()
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("%s: expected ExitError, got %v", name, err)
		}
		if exitErr.Code != 3 {
			t.Fatalf("%s: expected code 3, got %d", name, exitErr.Code)
		}
		if !strings.Contains(exitErr.Output, "bad input") {
			t.Fatalf("%s: expected output tail, got %q", name, exitErr.Output)
		}
	}
}

func TestRunMissingTool(t *testing.T) {
	r, _ := newTestRunner(t)
	err := r.Run(context.Background(), NewCommand("does-not-exist"))
	if err == nil {
		t.Fatalf("expected error for missing tool")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("missing tool must not look like an exit status: %v", err)
	}
}

func TestCommandString(t *testing.T) {
	c := NewCommand("text2image", "--font=Noto Sans", "--ptsize=12", "it's")
	want := `text2image '--font=Noto Sans' --ptsize=12 'it'\''s'`
	if got := c.String(); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestRunPassesEnvironment(t *testing.T) {
	r, _ := newTestRunner(t)
	faketool.Write(t, r.BinDir, "envtool", `echo "prefix=$TESSDATA_PREFIX"`)

	c := NewCommand("envtool")
	c.Env = []string{"TESSDATA_PREFIX=/data/tessdata"}
	out, err := r.Output(context.Background(), c)
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if strings.TrimSpace(out) != "prefix=/data/tessdata" {
		t.Fatalf("unexpected output %q", out)
	}
}
