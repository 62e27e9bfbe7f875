// Package importer reads batch files dropped into the books' import
// directory.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// Parser converts an import file into draft journal entries.
type Parser interface {
	Parse(r io.Reader) ([]model.JournalEntry, error)
	Format() string
}

// Registry maps format names, case-insensitively, to parsers.
type Registry struct {
	byFormat map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byFormat: make(map[string]Parser)}
}

// DefaultRegistry returns a registry with the built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&BatchParser{})
	return r
}

// Register adds p under its format. Registering a format twice panics.
func (r *Registry) Register(p Parser) {
	format := strings.ToLower(p.Format())
	if _, dup := r.byFormat[format]; dup {
		panic("importer: format registered twice: " + format)
	}
	r.byFormat[format] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.byFormat[strings.ToLower(format)]
}

// Formats lists the registered format names in order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.byFormat))
	for f := range r.byFormat {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ParseFile opens path and parses it with p. Errors are prefixed with the
// file name so a batch run can point at the offending file.
func ParseFile(p Parser, path string) ([]model.JournalEntry, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	entries, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return entries, nil
}

// Dir is where batch files wait to be imported.
func Dir(root string) string {
	return filepath.Join(root, "import")
}

// ProcessedDir is where imported files are moved.
func ProcessedDir(root string) string {
	return filepath.Join(Dir(root), "processed")
}

// FileInfo describes a pending batch file.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan lists the CSV files waiting in the import directory, sorted by name.
// Subdirectories, processed/ included, are not descended into. A missing
// directory yields no files.
func Scan(root string) ([]FileInfo, error) {
	dir := Dir(root)
	dirents, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, d := range dirents {
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".csv") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", d.Name(), err)
		}
		files = append(files, FileInfo{Name: d.Name(), Path: filepath.Join(dir, d.Name()), Size: info.Size()})
	}
	return files, nil
}

// MarkProcessed moves fileName into the processed directory. A processed
// file with the same name is never overwritten.
func MarkProcessed(root, fileName string) error {
	done := ProcessedDir(root)
	if err := os.MkdirAll(done, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(done, fileName)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s already processed", fileName)
	}
	if err := os.Rename(filepath.Join(Dir(root), fileName), dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
