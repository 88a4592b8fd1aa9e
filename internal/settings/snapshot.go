package settings

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SnapshotStore is a flat map from save name to an opaque instance
// snapshot. Snapshots are written and read whole; Put replaces any
// previous value. Replace swaps the whole content in one step: on error
// the previous content is left as it was.
type SnapshotStore interface {
	Put(name string, snapshot map[string]any) error
	Get(name string) (map[string]any, bool, error)
	Delete(name string) error
	Clear() error
	Replace(all map[string]map[string]any) error
	Names() ([]string, error)
	Flush() error
	Close() error
}

// Snapshot backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// OpenSnapshots opens the snapshot store for backend at path.
func OpenSnapshots(backend, path string) (SnapshotStore, error) {
	switch backend {
	case BackendJSON, "":
		return OpenJSONSnapshots(path)
	case BackendSQLite:
		return OpenSQLiteSnapshots(path)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", backend)
	}
}

// JSONSnapshots keeps every snapshot in one JSON object keyed by save name.
type JSONSnapshots struct {
	mu     sync.RWMutex
	path   string
	doc    string
	closed bool
}

var _ SnapshotStore = (*JSONSnapshots)(nil)

// NewJSONSnapshots creates an empty in-memory store.
func NewJSONSnapshots() *JSONSnapshots {
	return &JSONSnapshots{doc: "{}"}
}

// OpenJSONSnapshots loads the store at path. A missing file yields an empty
// store.
func OpenJSONSnapshots(path string) (*JSONSnapshots, error) {
	s := &JSONSnapshots{path: path, doc: "{}"}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading snapshots %s: %w", path, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("not a JSON object")}
	}
	s.doc = string(data)
	return s, nil
}

// Put replaces the snapshot stored under name.
func (s *JSONSnapshots) Put(name string, snapshot map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if snapshot == nil {
		snapshot = map[string]any{}
	}

	doc, err := sjson.Set(s.doc, escapeKey(name), snapshot)
	if err != nil {
		return fmt.Errorf("storing snapshot %s: %w", name, err)
	}
	s.doc = doc
	return nil
}

// Get returns the snapshot stored under name.
func (s *JSONSnapshots) Get(name string) (map[string]any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrStoreClosed
	}

	res := gjson.Get(s.doc, escapeKey(name))
	if !res.Exists() {
		return nil, false, nil
	}
	m, ok := res.Value().(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("snapshot %s is %s, want object", name, res.Type)
	}
	return m, true, nil
}

// Delete removes the snapshot stored under name.
func (s *JSONSnapshots) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	doc, err := sjson.Delete(s.doc, escapeKey(name))
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", name, err)
	}
	s.doc = doc
	return nil
}

// Clear removes every snapshot.
func (s *JSONSnapshots) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.doc = "{}"
	return nil
}

// Replace discards every snapshot and stores all in their place. Names are
// written in sorted order.
func (s *JSONSnapshots) Replace(all map[string]map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := "{}"
	for _, name := range names {
		snap := all[name]
		if snap == nil {
			snap = map[string]any{}
		}
		var err error
		if doc, err = sjson.Set(doc, escapeKey(name), snap); err != nil {
			return fmt.Errorf("storing snapshot %s: %w", name, err)
		}
	}
	s.doc = doc
	return nil
}

// Names returns the stored save names in document order.
func (s *JSONSnapshots) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var names []string
	gjson.Parse(s.doc).ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	return names, nil
}

// Flush writes the document to disk.
func (s *JSONSnapshots) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.path == "" {
		return nil
	}
	return writeFileAtomic(s.path, []byte(s.doc))
}

// Close marks the store closed. Unflushed changes are discarded.
func (s *JSONSnapshots) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// pathSpecial holds the characters gjson and sjson interpret in a path.
const pathSpecial = `\.*?|#@!=<>%:`

// escapeKey turns a save name into a single-component gjson/sjson path.
func escapeKey(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(pathSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
