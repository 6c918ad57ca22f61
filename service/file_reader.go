package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// FileReaderImpl implements the FileReader interface
type FileReaderImpl struct{}

// NewFileReader creates a new file reader service
func NewFileReader() *FileReaderImpl {
	return &FileReaderImpl{}
}

// CollectPythonFiles finds all Python files in the given paths. Patterns are
// doublestar globs matched against the path relative to the walked root and
// against the base name. Results are sorted.
func (f *FileReaderImpl) CollectPythonFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.NewFileNotFoundError(path, err)
		}

		if info.IsDir() {
			dirFiles, err := f.collectFromDirectory(path, recursive, includePatterns, excludePatterns)
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
		} else if f.IsValidPythonFile(path) && f.shouldIncludeFile(filepath.Base(path), includePatterns, excludePatterns) {
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ReadFile reads the content of a file
func (f *FileReaderImpl) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	return content, nil
}

// IsValidPythonFile checks if a file is a valid Python file
func (f *FileReaderImpl) IsValidPythonFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".py" || ext == ".pyi"
}

// FileExists checks if a file exists
func (f *FileReaderImpl) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// collectFromDirectory collects Python files from a directory
func (f *FileReaderImpl) collectFromDirectory(root string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	walkFunc := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if !recursive || strings.HasPrefix(name, ".") || f.shouldSkipDirectory(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || !f.IsValidPythonFile(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = name
		}
		if f.shouldIncludeFile(filepath.ToSlash(rel), includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(root, walkFunc); err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", root, err)
	}

	return files, nil
}

// shouldIncludeFile checks a slash-separated relative path against the patterns
func (f *FileReaderImpl) shouldIncludeFile(rel string, includePatterns, excludePatterns []string) bool {
	if matchesAny(excludePatterns, rel) {
		return false
	}

	// If no include patterns specified, include by default
	if len(includePatterns) == 0 {
		return true
	}

	return matchesAny(includePatterns, rel)
}

func matchesAny(patterns []string, rel string) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// shouldSkipDirectory checks if a directory should be skipped entirely
func (f *FileReaderImpl) shouldSkipDirectory(dirName string) bool {
	skipDirs := []string{
		"__pycache__",
		"node_modules",
		"venv",
		"env",
		"build",
		"dist",
		"*.egg-info",
	}

	dirLower := strings.ToLower(dirName)
	for _, skipDir := range skipDirs {
		if matched, _ := doublestar.Match(skipDir, dirLower); matched {
			return true
		}
	}

	return false
}

// ValidatePaths validates that all provided paths exist and are accessible
func (f *FileReaderImpl) ValidatePaths(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return domain.NewFileNotFoundError(path, err)
			}
			return domain.NewInvalidInputError(fmt.Sprintf("cannot access path: %s", path), err)
		}
	}
	return nil
}
