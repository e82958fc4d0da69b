package stages

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ErrMissingOutput is returned when a tool exits successfully without
// producing an expected file.
var ErrMissingOutput = errors.New("expected output is missing")

// ErrMissingInput is returned when a stage precondition file is absent.
var ErrMissingInput = errors.New("required input is missing")

func requireInputs(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissingInput, path)
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return nil
}

func requireOutputs(paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissingOutput, path)
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrMissingOutput, path)
		}
	}
	return nil
}

// glob returns the sorted matches of pattern inside dir.
func glob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
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

func copyInto(dir string, files []string) error {
	for _, f := range files {
		if err := copyFile(f, filepath.Join(dir, filepath.Base(f))); err != nil {
			return fmt.Errorf("failed to copy %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}
