package source

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// File returns the first line of a file with surrounding whitespace removed.
// The cpufreq scaling_governor entry is the intended use.
type File struct {
	Path string
}

// NewFile returns a file source for path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Query implements Source.
func (f *File) Query(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("read %s: file is empty", f.Path)
	}

	first, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(first), nil
}
