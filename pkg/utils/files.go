package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ReadSource reads a source file and returns its absolute path with the
// contents.
func ReadSource(relPath string) (fullPath string, src string, err error) {
	fullPath, _, err = GetPathInfo(relPath)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read source file %q: %w", relPath, err)
	}
	return fullPath, string(data), nil
}
