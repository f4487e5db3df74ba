package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ListFiles returns the *.txt files directly inside dir in lexical order.
func ListFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("transcript: %q is not a directory", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("transcript: list %q: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}
