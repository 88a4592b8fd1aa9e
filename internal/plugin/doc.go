// Package plugin discovers and loads overlay plugins.
//
// A plugin is a zip archive named <name>.plugin holding Lua sources. Each
// archive is loaded into its own sandboxed Lua state (a Unit), so plugins
// never share globals and a broken archive cannot affect the others. After
// the entry point runs, the unit's globals are probed for factory symbols:
//
//	createWindow(parent)  builds a KindWindow instance
//	createWidget(parent)  builds a KindWidget instance
//
// A factory returns a table whose methods (show, hide, ready, snapshot,
// restore, reload_config, open_settings, highlight_border) are all
// optional.
//
// # Descriptors
//
// Every archive becomes one Descriptor per kind it supports. A Descriptor is
// either a *Normal, backed by a loaded unit, or a *Bad, which records why the
// archive could not be loaded and always fails to build:
//
//	switch d := d.(type) {
//	case *plugin.Normal:
//	    inst, err := d.Build(parent)
//	case *plugin.Bad:
//	    log.Warn(d.DescribeError())
//	}
//
// Normal.Build is idempotent. Window descriptors can be cloned; cloning a
// widget returns ErrNotSupported.
//
// # Scanning
//
// A Scanner owns the units it loads:
//
//	s := plugin.NewScanner(dir, plugin.WithLogger(log))
//	defer s.Close()
//	res, err := s.Scan()
//
// Resolve loads a single archive by module name, which is how persisted
// settings find their code after a restart.
package plugin
