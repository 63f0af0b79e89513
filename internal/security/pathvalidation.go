// Package security validates the output paths the renderers write to.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// canonical resolves path to an absolute path with symlinks evaluated. For a
// path that does not exist yet, the nearest existing parent is resolved and
// the remainder re-attached, so /tmp/link/new.html with link -> /etc
// resolves under /etc.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rel), nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			return abs, nil
		}
	}
}

// ValidatePathWithinDirectory checks that filePath does not escape safeDir,
// following symlinks on both sides.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	path, err := canonical(filePath)
	if err != nil {
		return err
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}
	dir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidateOutputPath checks an html_output or trace_output path. The file
// must carry one of the given extensions and live under the working
// directory or the temp directory. An empty path disables the output and is
// always valid.
func ValidateOutputPath(filePath string, extensions ...string) error {
	if filePath == "" {
		return nil
	}

	if len(extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(filePath))
		ok := false
		for _, want := range extensions {
			if ext == want {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("output %s must have extension %s", filePath, strings.Join(extensions, " or "))
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	for _, dir := range []string{cwd, os.TempDir()} {
		if err := ValidatePathWithinDirectory(filePath, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("output %s must be within the working directory or %s", filePath, os.TempDir())
}
