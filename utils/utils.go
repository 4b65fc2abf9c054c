package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckDirs verifies that every non-empty path exists and is a directory
func CheckDirs(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		info, err := os.Stat(d)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%s does not exist", d)
			}
			return fmt.Errorf("cannot access %s: %w", d, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", d)
		}
	}
	return nil
}

// CheckFiles verifies that every non-empty path exists and is a regular file
func CheckFiles(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		info, err := os.Stat(f)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%s does not exist", f)
			}
			return fmt.Errorf("cannot access %s: %w", f, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a file", f)
		}
	}
	return nil
}

// FlattenName turns a scene path into a test name: the path relative to
// root, extension stripped, components joined with an underscore.
// "scenes/polymesh/dragon.json" under "scenes" becomes "polymesh_dragon".
func FlattenName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("cannot relate %s to %s: %w", path, root, err)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")

	kept := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_"), nil
}

// GetDefaultDatabasePath returns the default history database inside the output directory
func GetDefaultDatabasePath(outDir string) string {
	return filepath.Join(outDir, "history.db")
}

// FileExists checks if a file exists and is accessible
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
