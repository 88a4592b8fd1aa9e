package plugin

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// DefaultExtension is the file extension of plugin archives.
const DefaultExtension = ".plugin"

// maxEntrySize caps how much of a single archive entry is read into memory.
const maxEntrySize = 16 << 20

// Well-known archive entries.
const (
	EntryInit         = "init.lua"
	EntryIcon         = "icon.png"
	EntryManifestJSON = "plugin.json"
	EntryManifestYAML = "plugin.yaml"
)

// Archive is the in-memory contents of one plugin archive.
type Archive struct {
	// Name is the archive base name without extension; it is the module
	// identity persisted in settings.
	Name string

	// Path is where the archive was read from.
	Path string

	files map[string][]byte
}

// ArchiveName returns the module name for an archive path.
func ArchiveName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OpenArchive reads every regular entry of the zip archive at p.
func OpenArchive(p string) (*Archive, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	a := &Archive{
		Name:  ArchiveName(p),
		Path:  p,
		files: make(map[string][]byte, len(zr.File)),
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(strings.TrimPrefix(f.Name, "/"))
		if name == ".." || strings.HasPrefix(name, "../") {
			return nil, fmt.Errorf("entry %q escapes the archive root", f.Name)
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", f.Name, err)
		}
		a.files[name] = data
	}

	return a, nil
}

// readEntry reads one entry, refusing anything larger than maxEntrySize.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("larger than %d bytes", maxEntrySize)
	}
	return data, nil
}

// ReadFile returns the contents of the named entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	data, ok := a.files[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("%s: no such entry in %s", name, a.Name)
	}
	return data, nil
}

// Has reports whether the archive contains the named entry.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[path.Clean(name)]
	return ok
}

// Files returns the entry names, sorted.
func (a *Archive) Files() []string {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
