package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/logging"
	"github.com/dshills/overlay/internal/metrics"
)

// Scanner discovers plugin archives in a directory and loads each one into
// an isolated code unit. It owns every unit it loads.
type Scanner struct {
	dir string
	ext string

	log     *logging.Logger
	metrics *metrics.Metrics

	// Loaded units by archive name.
	units map[string]*Unit

	// Load errors by archive name, until the archive loads again.
	failed map[string]error

	// Units replaced by a reload; descriptors may still reference them.
	retired []*Unit
}

// LoadResult is the outcome of loading one archive: either Unit or Err is
// set.
type LoadResult struct {
	Name string
	Path string
	Unit *Unit
	Err  error
}

// Failed reports whether the archive failed to load.
func (r LoadResult) Failed() bool {
	return r.Err != nil
}

// ScanResult is the outcome of scanning a directory.
type ScanResult struct {
	Modules      map[string]LoadResult
	Capabilities map[string]KindSet
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithExtension sets the archive file extension (default ".plugin").
func WithExtension(ext string) ScannerOption {
	return func(s *Scanner) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

// WithLogger sets the scanner's logger.
func WithLogger(log *logging.Logger) ScannerOption {
	return func(s *Scanner) {
		s.log = log
	}
}

// WithMetrics sets the metrics the scanner records to.
func WithMetrics(m *metrics.Metrics) ScannerOption {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// NewScanner creates a scanner for dir.
func NewScanner(dir string, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		dir:   dir,
		ext:   DefaultExtension,
		log:   logging.NewNop(),
		units:  make(map[string]*Unit),
		failed: make(map[string]error),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.ext == "" {
		s.ext = DefaultExtension
	}
	s.log = s.log.WithComponent("scanner")

	return s
}

// Dir returns the scanned directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Extension returns the archive extension.
func (s *Scanner) Extension() string {
	return s.ext
}

// Archives lists the archive paths in the directory, sorted by name.
// A missing directory yields no archives.
func (s *Scanner) Archives() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), s.ext) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}

// Load loads one archive into a fresh unit. A failure is captured in the
// result; it never affects other archives. A successfully loaded unit
// replaces any cached unit of the same name for future Resolve calls.
func (s *Scanner) Load(path string) LoadResult {
	result := LoadResult{
		Name: ArchiveName(path),
		Path: path,
	}

	unit, err := s.loadArchive(path)
	if err != nil {
		result.Err = err
		s.failed[result.Name] = err
		s.metrics.ArchiveScanned(metrics.ResultFailed)
		s.log.Warn("archive failed to load",
			zap.String("archive", result.Name),
			zap.Error(err))
		return result
	}

	result.Unit = unit
	delete(s.failed, result.Name)
	if old, ok := s.units[result.Name]; ok {
		s.retired = append(s.retired, old)
	}
	s.units[result.Name] = unit
	s.metrics.ArchiveScanned(metrics.ResultLoaded)
	s.log.Debug("archive loaded",
		zap.String("archive", result.Name),
		zap.Stringers("kinds", unit.Capabilities().Sorted()))
	return result
}

// loadArchive reads and runs a single archive.
func (s *Scanner) loadArchive(path string) (*Unit, error) {
	archive, err := OpenArchive(path)
	if err != nil {
		return nil, &LoadError{Archive: ArchiveName(path), Stage: StageArchive, Err: err}
	}
	return LoadUnit(archive)
}

// Scan loads every archive in the directory.
func (s *Scanner) Scan() (ScanResult, error) {
	paths, err := s.Archives()
	if err != nil {
		return ScanResult{}, fmt.Errorf("scanning %s: %w", s.dir, err)
	}

	result := ScanResult{
		Modules:      make(map[string]LoadResult, len(paths)),
		Capabilities: make(map[string]KindSet, len(paths)),
	}

	for _, p := range paths {
		lr := s.Load(p)
		result.Modules[lr.Name] = lr
		if lr.Unit != nil {
			result.Capabilities[lr.Name] = lr.Unit.Capabilities()
		}
	}

	return result, nil
}

// Known reports whether an archive of that name has been loaded.
func (s *Scanner) Known(name string) bool {
	_, ok := s.units[name]
	return ok
}

// Resolve returns the unit for a module name, loading <dir>/<name><ext> if
// it has not been loaded yet. A missing archive yields ErrModuleNotFound.
// An archive that already failed to load reports the same error again
// without being reloaded; Load retries it.
func (s *Scanner) Resolve(name string) (*Unit, error) {
	if unit, ok := s.units[name]; ok {
		return unit, nil
	}
	if err, ok := s.failed[name]; ok {
		return nil, err
	}

	path := filepath.Join(s.dir, name+s.ext)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
		}
		return nil, err
	}

	lr := s.Load(path)
	if lr.Err != nil {
		return nil, lr.Err
	}
	return lr.Unit, nil
}

// Close releases every unit the scanner loaded.
func (s *Scanner) Close() error {
	for name, unit := range s.units {
		unit.Close()
		delete(s.units, name)
	}
	for _, unit := range s.retired {
		unit.Close()
	}
	s.retired = nil
	return nil
}
