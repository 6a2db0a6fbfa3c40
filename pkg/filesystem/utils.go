// Package filesystem resolves file locations relative to the running
// binary and prepares output paths for writing.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrDirNotFound reports a directory that could not be created.
var ErrDirNotFound = errors.New("directory not found")

// GetDefaultPath resolves filename against the executable's directory, the
// fallback location for config and cache files when a relative path does
// not exist in the working directory.
func GetDefaultPath(filename string) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), filename), nil
}

// EnsureDirectoryExists creates the parent directory of filePath so a
// following write cannot fail on a missing directory.
func EnsureDirectoryExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
