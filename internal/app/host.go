package app

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/logging"
	"github.com/dshills/overlay/internal/plugin"
)

// Properties are handed to plugin factories as the parent object.
type Properties map[string]any

// Properties implements plugin.Parent.
func (p Properties) Properties() map[string]any {
	return p
}

// HeadlessHost is a lifecycle.Host with no windowing system behind it. It
// tracks attached instances so they can be listed and inspected.
type HeadlessHost struct {
	mu       sync.RWMutex
	parent   Properties
	attached map[string]*plugin.Instance
	applied  int
	log      *logging.Logger
}

// NewHeadlessHost creates a host whose factories receive props.
func NewHeadlessHost(props Properties, log *logging.Logger) *HeadlessHost {
	if log == nil {
		log = logging.NewNop()
	}
	if props == nil {
		props = Properties{}
	}
	return &HeadlessHost{
		parent:   props,
		attached: make(map[string]*plugin.Instance),
		log:      log.WithComponent("host"),
	}
}

// Parent implements lifecycle.Host.
func (h *HeadlessHost) Parent() plugin.Parent {
	return h.parent
}

// Register implements lifecycle.Host.
func (h *HeadlessHost) Register(d *plugin.Normal, inst *plugin.Instance) {
	h.mu.Lock()
	h.attached[d.SaveName()] = inst
	h.mu.Unlock()

	h.log.Debug("instance attached",
		zap.String("save_name", d.SaveName()),
		zap.String("instance", inst.ID()))
}

// Unregister implements lifecycle.Host.
func (h *HeadlessHost) Unregister(d *plugin.Normal, _ *plugin.Instance) {
	h.mu.Lock()
	delete(h.attached, d.SaveName())
	h.mu.Unlock()

	h.log.Debug("instance detached", zap.String("save_name", d.SaveName()))
}

// ApplySettings implements lifecycle.Host.
func (h *HeadlessHost) ApplySettings(descs []plugin.Descriptor) error {
	h.mu.Lock()
	h.applied++
	h.mu.Unlock()

	var active int
	for _, d := range descs {
		if n, ok := d.(*plugin.Normal); ok && n.Active() {
			active++
		}
	}
	h.log.Info("settings applied",
		zap.Int("descriptors", len(descs)),
		zap.Int("active", active))
	return nil
}

// Attached returns the save names of attached instances, sorted.
func (h *HeadlessHost) Attached() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.attached))
	for name := range h.attached {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instance returns the attached instance for a save name.
func (h *HeadlessHost) Instance(saveName string) (*plugin.Instance, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inst, ok := h.attached[saveName]
	return inst, ok
}

// Applied returns how many times ApplySettings ran.
func (h *HeadlessHost) Applied() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.applied
}
