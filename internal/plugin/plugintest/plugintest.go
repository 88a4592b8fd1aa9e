// Package plugintest builds plugin archives for tests.
package plugintest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Window is a plugin that can build windows. Its object records hook calls
// in a calls table and round-trips a snapshot.
const Window = `
function createWindow(parent)
  local w = { calls = {}, config = { title = parent.title or "untitled" } }
  function w:show() table.insert(self.calls, "show") end
  function w:hide() table.insert(self.calls, "hide") end
  function w:ready() table.insert(self.calls, "ready") end
  function w:reload_config() table.insert(self.calls, "reload_config") end
  function w:open_settings() table.insert(self.calls, "open_settings") end
  function w:highlight_border() table.insert(self.calls, "highlight_border") end
  function w:snapshot() return self.config end
  function w:restore(cfg) self.config = cfg end
  return w
end
`

// Widget is a plugin that can build widgets only.
const Widget = `
function createWidget(parent)
  local w = { calls = {} }
  function w:show() table.insert(self.calls, "show") end
  function w:hide() table.insert(self.calls, "hide") end
  return w
end
`

// Both is a plugin that can build either kind.
const Both = Window + Widget

// Worker defines only the unprobed worker symbol.
const Worker = `
function createWorker(parent) return {} end
`

// Failing defines a window factory that raises.
const Failing = `
function createWindow(parent) error("factory exploded") end
`

// Syntax is a script that does not compile.
const Syntax = `function createWindow(`

// WriteArchive writes a zip archive named <name>.plugin to dir and returns
// its path. Entries are written in name order.
func WriteArchive(t testing.TB, dir, name string, files map[string]string) string {
	t.Helper()

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("creating %s: %v", n, err)
		}
		if _, err := w.Write([]byte(files[n])); err != nil {
			t.Fatalf("writing %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}

	p := filepath.Join(dir, name+".plugin")
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return p
}

// WriteScript writes an archive whose init.lua is script.
func WriteScript(t testing.TB, dir, name, script string) string {
	t.Helper()
	return WriteArchive(t, dir, name, map[string]string{"init.lua": script})
}

// WriteCorrupt writes a file with the archive extension that is not a zip.
func WriteCorrupt(t testing.TB, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name+".plugin")
	if err := os.WriteFile(p, []byte("not a zip archive"), 0o644); err != nil {
		t.Fatalf("writing corrupt archive: %v", err)
	}
	return p
}

// PNG returns an encoded 2x2 image.
func PNG(t testing.TB) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.String()
}

// Parent is a plugin.Parent backed by a plain map.
type Parent map[string]any

// Properties returns p.
func (p Parent) Properties() map[string]any {
	return p
}
