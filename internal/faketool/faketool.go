// Package faketool writes shell scripts that stand in for the Tesseract
// training tools in tests.
package faketool

import (
	"os"
	"path/filepath"
	"testing"
)

// Write creates an executable /bin/sh script named name in dir.
func Write(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	return path
}

// Dir returns a fresh directory for fake tools.
func Dir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create bin dir: %v", err)
	}
	return dir
}
