package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileOverwrite writes content to a file at the specified path,
// overwriting it if it already exists. Parent directories are created
// as needed.
func WriteFileOverwrite(filePath string, content []byte, perm os.FileMode) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer f.Close()

	if _, err = f.Write(content); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", filePath, err)
	}

	return nil
}

// SanitizeFilename replaces characters that are not safe in file names.
func SanitizeFilename(name string) string {
	const unsafe = `\/:*?"<>|`
	out := []rune(name)
	for i, r := range out {
		for _, u := range unsafe {
			if r == u {
				out[i] = '-'
				break
			}
		}
	}
	return string(out)
}
