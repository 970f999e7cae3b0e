// Package importer reads bank-feed CSV files into raw transactions.
package importer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/rentbook/internal/model"
)

// Parser converts a bank CSV file into raw transactions.
type Parser interface {
	Parse(r io.Reader) ([]model.RawTransaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in a drop folder.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&GenericParser{})
	return r
}

// Detect picks a parser from the file's header line: the Chase export
// header selects chase, anything else generic.
func (r *Registry) Detect(path string) (Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	line = strings.TrimPrefix(strings.TrimSpace(line), "\ufeff")
	format := "generic"
	if strings.EqualFold(line, ChaseHeader) {
		format = "chase"
	}
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("no parser registered for %s", format)
	}
	return p, nil
}

// ParseFile parses path with the named parser, or detects one when format is empty.
func (r *Registry) ParseFile(path, format string) ([]model.RawTransaction, error) {
	var p Parser
	if format == "" {
		var err error
		if p, err = r.Detect(path); err != nil {
			return nil, err
		}
	} else if p = r.Get(format); p == nil {
		return nil, fmt.Errorf("unknown format %q", format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s as %s: %w", filepath.Base(path), p.Format(), err)
	}
	return txns, nil
}

// ImportDir is the bank feed drop folder inside a project.
const ImportDir = "import"

// Scan returns CSV files in <root>/import/.
func Scan(root string) ([]FileInfo, error) {
	return ScanDir(filepath.Join(root, ImportDir))
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	return MoveToProcessed(filepath.Join(root, ImportDir), fileName)
}

// ScanDir returns the CSV files directly inside dir. A missing dir has none.
func ScanDir(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MoveToProcessed moves dir/fileName to dir/processed/fileName.
func MoveToProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
