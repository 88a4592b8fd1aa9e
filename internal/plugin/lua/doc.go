// Package lua provides the Lua runtime that backs plugin code units.
//
// Every plugin archive is loaded into its own State. Nothing is shared
// between states: globals, loaded modules and the registry all belong to a
// single archive, so one plugin can never observe or clobber another.
//
// # State
//
//	state, err := lua.NewState(lua.WithModuleSource(archive))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoChunk("init.lua", src); err != nil {
//	    return err
//	}
//
// # Sandbox
//
// The sandbox removes dofile, loadfile, load and loadstring, never opens the
// io, os or debug libraries, and replaces require with a resolver that only
// serves the safe builtin libraries and .lua files from the plugin's own
// archive ("lib.util" resolves to "lib/util.lua").
//
// Every chunk and call is bounded by an execution timeout
// (DefaultExecutionTimeout unless WithExecutionTimeout says otherwise). A
// runaway factory fails with ErrExecutionTimeout instead of stalling the
// host.
//
// # Bridge
//
// The Bridge converts between Lua values and plain Go values. Plugin
// snapshots cross the boundary through it:
//
//	bridge := lua.NewBridge(state.LuaState())
//	snapshot := bridge.ToGoValue(tbl)      // map[string]any
//	tbl = bridge.ToLuaValue(snapshot)      // *lua.LTable
package lua
