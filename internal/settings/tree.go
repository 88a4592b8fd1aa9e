package settings

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Tree is a hierarchical key/value store persisted as a TOML file. Values
// live in named groups; groups nest to any depth.
type Tree struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// NewTree creates an empty in-memory tree. Flush is a no-op until the tree
// has a path.
func NewTree() *Tree {
	return &Tree{data: make(map[string]any)}
}

// OpenTree loads the tree stored at path. A missing file yields an empty
// tree that will be written to path on Flush.
func OpenTree(path string) (*Tree, error) {
	t := &Tree{path: path, data: make(map[string]any)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &t.data); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if t.data == nil {
		t.data = make(map[string]any)
	}
	return t, nil
}

// Path returns the backing file, or "" for an in-memory tree.
func (t *Tree) Path() string {
	return t.path
}

// Group returns the group at path. The group need not exist yet; it is
// created by the first Set.
func (t *Tree) Group(path ...string) *Group {
	return &Group{tree: t, path: append([]string(nil), path...)}
}

// Groups returns the names of the top-level groups, sorted.
func (t *Tree) Groups() []string {
	return t.Group().Groups()
}

// Remove deletes the group at path and everything beneath it.
func (t *Tree) Remove(path ...string) {
	if len(path) == 0 {
		t.Clear()
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := lookupGroup(t.data, path[:len(path)-1])
	if !ok {
		return
	}
	delete(parent, path[len(path)-1])
}

// Clear removes every group and value.
func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = make(map[string]any)
}

// Map returns a deep copy of the tree's contents.
func (t *Tree) Map() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyMap(t.data)
}

// MarshalTOML encodes the tree as TOML.
func (t *Tree) MarshalTOML() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return toml.Marshal(t.data)
}

// Flush writes the tree to its file, replacing the previous contents
// atomically.
func (t *Tree) Flush() error {
	if t.path == "" {
		return nil
	}

	data, err := t.MarshalTOML()
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return writeFileAtomic(t.path, data)
}

// Group is a view of one group in a Tree.
type Group struct {
	tree *Tree
	path []string
}

// Path returns the group's path from the root.
func (g *Group) Path() []string {
	return append([]string(nil), g.path...)
}

// Name returns the last path element.
func (g *Group) Name() string {
	if len(g.path) == 0 {
		return ""
	}
	return g.path[len(g.path)-1]
}

// String returns the slash-joined path.
func (g *Group) String() string {
	return strings.Join(g.path, "/")
}

// Group returns a child group.
func (g *Group) Group(name string) *Group {
	return g.tree.Group(append(g.Path(), name)...)
}

// Exists reports whether the group is present in the tree.
func (g *Group) Exists() bool {
	g.tree.mu.RLock()
	defer g.tree.mu.RUnlock()
	_, ok := lookupGroup(g.tree.data, g.path)
	return ok
}

// Set stores value under key, creating the group if needed.
func (g *Group) Set(key string, value any) error {
	g.tree.mu.Lock()
	defer g.tree.mu.Unlock()

	m, err := ensureGroup(g.tree.data, g.path)
	if err != nil {
		return err
	}
	m[key] = value
	return nil
}

// Get returns the raw value stored under key.
func (g *Group) Get(key string) (any, bool) {
	g.tree.mu.RLock()
	defer g.tree.mu.RUnlock()

	m, ok := lookupGroup(g.tree.data, g.path)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	if _, isGroup := v.(map[string]any); isGroup {
		return nil, false
	}
	return v, ok
}

// Has reports whether key holds a value.
func (g *Group) Has(key string) bool {
	_, ok := g.Get(key)
	return ok
}

// GetString returns a string value.
func (g *Group) GetString(key string) (string, error) {
	v, ok := g.Get(key)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Key: key, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value.
func (g *Group) GetInt(key string) (int, error) {
	v, ok := g.Get(key)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	default:
		return 0, &TypeError{Key: key, Expected: "int", Actual: typeName(v)}
	}
}

// GetBool returns a boolean value.
func (g *Group) GetBool(key string) (bool, error) {
	v, ok := g.Get(key)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Key: key, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// Keys returns the names of the values in the group, sorted.
func (g *Group) Keys() []string {
	return g.children(false)
}

// Groups returns the names of the child groups, sorted.
func (g *Group) Groups() []string {
	return g.children(true)
}

func (g *Group) children(groups bool) []string {
	g.tree.mu.RLock()
	defer g.tree.mu.RUnlock()

	m, ok := lookupGroup(g.tree.data, g.path)
	if !ok {
		return nil
	}

	var names []string
	for k, v := range m {
		if _, isGroup := v.(map[string]any); isGroup == groups {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Remove deletes the group from the tree.
func (g *Group) Remove() {
	g.tree.Remove(g.path...)
}

// lookupGroup walks path through nested maps.
func lookupGroup(m map[string]any, path []string) (map[string]any, bool) {
	current := m
	for _, part := range path {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// ensureGroup walks path, creating missing groups.
func ensureGroup(m map[string]any, path []string) (map[string]any, error) {
	current := m
	for _, part := range path {
		next, ok := current[part]
		if !ok {
			created := make(map[string]any)
			current[part] = created
			current = created
			continue
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is a value", ErrInvalidPath, part)
		}
		current = nextMap
	}
	return current, nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = copyMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
