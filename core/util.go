package core

import (
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims s and, when lower is true, lowercases it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) == 0 || !lower[0] {
		return s
	}
	return strings.ToLower(s)
}

// Getwd returns the closest ancestor of the working directory holding a go.mod file.
// Tests run from their package directory, deployed binaries usually have no go.mod around:
// in that case the working directory itself is returned.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := wd; ; {
		if isFile(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd
		}
		dir = parent
	}
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
