package lua

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ModuleSource supplies plugin-local Lua modules to require.
// Paths are slash-separated and relative to the plugin root.
type ModuleSource interface {
	ReadFile(path string) ([]byte, error)
}

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	source ModuleSource
	loaded *lua.LTable
}

// builtinModules are the libraries require may hand out.
var builtinModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, source ModuleSource) *Sandbox {
	return &Sandbox{
		L:      L,
		source: source,
		loaded: L.NewTable(),
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	// Nothing may be loaded from disk through package.path/cpath.
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	s.L.SetGlobal("require", s.L.NewFunction(s.require))
}

// require resolves builtin libraries and .lua files from the module source.
func (s *Sandbox) require(L *lua.LState) int {
	modName := L.CheckString(1)

	if builtinModules[modName] {
		L.Push(L.GetGlobal(modName))
		return 1
	}

	if cached := s.loaded.RawGetString(modName); cached != lua.LNil {
		L.Push(cached)
		return 1
	}

	if s.source == nil {
		L.RaiseError("%s: %q", ErrModuleNotAvailable, modName)
		return 0
	}

	path := ModulePath(modName)
	code, err := s.source.ReadFile(path)
	if err != nil {
		L.RaiseError("%s: %q", ErrModuleNotAvailable, modName)
		return 0
	}

	fn, err := L.Load(strings.NewReader(string(code)), path)
	if err != nil {
		L.RaiseError("loading module %q: %s", modName, err.Error())
		return 0
	}

	L.Push(fn)
	L.Push(lua.LString(modName))
	L.Call(1, 1)

	result := L.Get(-1)
	L.Pop(1)
	if result == lua.LNil {
		result = lua.LTrue
	}
	s.loaded.RawSetString(modName, result)

	L.Push(result)
	return 1
}

// ModulePath maps a dotted module name to its archive path.
func ModulePath(modName string) string {
	return strings.ReplaceAll(modName, ".", "/") + ".lua"
}

// Loaded reports whether require has already resolved modName from the
// module source.
func (s *Sandbox) Loaded(modName string) bool {
	return s.loaded.RawGetString(modName) != lua.LNil
}

// IsModuleError reports whether err came from an unresolvable require.
func IsModuleError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return strings.Contains(fmt.Sprint(apiErr.Object), ErrModuleNotAvailable.Error())
	}
	return strings.Contains(err.Error(), ErrModuleNotAvailable.Error())
}
