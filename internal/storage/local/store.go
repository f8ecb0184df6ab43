// Package local reserves output paths and writes downloaded files on the
// local filesystem.
package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// ErrNotDirectory is returned when the base path exists but is not a directory.
var ErrNotDirectory = errors.New("base directory path is not a directory")

// Config captures the parameters for the local filesystem store.
type Config struct {
	// BaseDir is the directory files are written into.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Store reserves unique path stems inside one directory and writes files there.
type Store struct {
	baseDir string
}

// New creates the base directory (and parents) when absent.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	abs, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if mkErr := os.MkdirAll(abs, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}

	return &Store{baseDir: abs}, nil
}

// BaseDir returns the absolute directory managed by the store.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Reserve returns n stems (absolute paths without extension) of the form
// <dir>/<base><suffix> such that no file matches <stem>.* right now.
//
// A single suffix counter starting at 0 is shared by all n requests: an
// occupied suffix is skipped and every accepted suffix is consumed, so with
// cat1.png present Reserve("cat", 3) yields cat0, cat2, cat3.
func (s *Store) Reserve(base string, n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("reserve %d stems: count must be >= 0", n)
	}
	base = sanitizeBase(base)
	stems := make([]string, 0, n)
	suffix := 0
	for range n {
		for {
			stem := filepath.Join(s.baseDir, base+strconv.Itoa(suffix))
			taken, err := occupied(stem)
			if err != nil {
				return nil, err
			}
			if !taken {
				stems = append(stems, stem)
				suffix++
				break
			}
			suffix++
		}
	}
	return stems, nil
}

// Write stores data at path, which must live inside the base directory.
func (s *Store) Write(path string, data []byte) error {
	cleanBaseDir := filepath.Clean(s.baseDir)
	cleanPath := filepath.Clean(path)
	if !strings.HasPrefix(cleanPath, cleanBaseDir+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected")
	}
	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// occupied reports whether any file matches stem.*.
func occupied(stem string) (bool, error) {
	matches, err := filepath.Glob(escapeGlob(stem) + ".*")
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", stem, err)
	}
	return len(matches) > 0, nil
}

// escapeGlob quotes glob metacharacters so a literal path can prefix a pattern.
func escapeGlob(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		case '\\':
			if runtime.GOOS == "windows" {
				b.WriteRune(r)
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizeBase keeps the base name inside the directory.
func sanitizeBase(base string) string {
	base = strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(base)
	if base == "" || base == "." || base == ".." {
		return "image"
	}
	return base
}
