package lua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single chunk or call.
const DefaultExecutionTimeout = 5 * time.Second

// State is the Lua interpreter of one plugin archive. gopher-lua states
// are not goroutine-safe, so every entry point takes mu.
type State struct {
	L *lua.LState

	mu sync.Mutex

	name    string
	source  ModuleSource
	sandbox *Sandbox
	timeout time.Duration

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithModuleSource sets where require looks up plugin-local modules.
func WithModuleSource(src ModuleSource) StateOption {
	return func(s *State) {
		s.source = src
	}
}

// WithName sets the name used in error messages for this state.
func WithName(name string) StateOption {
	return func(s *State) {
		s.name = name
	}
}

// WithExecutionTimeout bounds every chunk and call. Zero disables the limit.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// safeLibs are the only standard libraries a plugin state opens.
var safeLibs = []lua.LGFunction{lua.OpenBase, lua.OpenPackage, lua.OpenTable, lua.OpenString, lua.OpenMath}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range safeLibs {
		open(s.L)
	}
	s.sandbox = NewSandbox(s.L, s.source)
	s.sandbox.Install()
	return s, nil
}

// Name returns the archive name the state was created for.
func (s *State) Name() string {
	return s.name
}

// enter takes the state lock. On success the caller must unlock s.mu.
func (s *State) enter() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStateClosed
	}
	return nil
}

// DoChunk compiles code under the given chunk name and runs it.
func (s *State) DoChunk(chunk, code string) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	fn, err := s.L.Load(strings.NewReader(code), chunk)
	if err != nil {
		return err
	}
	_, err = s.invoke(fn)
	return err
}

// DoString runs code as an anonymous chunk.
func (s *State) DoString(code string) error {
	return s.DoChunk("<string>", code)
}

// Call calls the global function fn. A function that returns nothing yields
// an empty, non-nil slice.
func (s *State) Call(fn string, args ...lua.LValue) ([]lua.LValue, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	f := s.L.GetGlobal(fn)
	if f.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotFunction, fn, f.Type())
	}
	return s.invoke(f, args...)
}

// CallMethod calls obj:method(args...). The boolean result is false when the
// table has no such method, in which case nothing is called.
func (s *State) CallMethod(obj *lua.LTable, method string, args ...lua.LValue) ([]lua.LValue, bool, error) {
	if err := s.enter(); err != nil {
		return nil, false, err
	}
	defer s.mu.Unlock()

	f := s.L.GetField(obj, method)
	if f.Type() != lua.LTFunction {
		return nil, false, nil
	}
	results, err := s.invoke(f, append([]lua.LValue{obj}, args...)...)
	return results, true, err
}

// invoke runs f under the execution timeout and collects its results.
// The stack is restored to its prior height either way. Callers hold s.mu.
func (s *State) invoke(f lua.LValue, args ...lua.LValue) (results []lua.LValue, err error) {
	base := s.L.GetTop()
	defer s.L.SetTop(base)

	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		s.L.SetContext(ctx)
		defer func() {
			s.L.RemoveContext()
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %s: %v", ErrExecutionTimeout, s.timeout, err)
			}
			cancel()
		}()
	}
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("lua panic: %v", r)
		}
	}()

	s.L.Push(f)
	for _, arg := range args {
		s.L.Push(arg)
	}
	if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
		return nil, err
	}

	results = make([]lua.LValue, 0, s.L.GetTop()-base)
	for i := base + 1; i <= s.L.GetTop(); i++ {
		results = append(results, s.L.Get(i))
	}
	return results, nil
}

// HasFunction reports whether the named global is a function.
func (s *State) HasFunction(name string) bool {
	return s.GetGlobal(name).Type() == lua.LTFunction
}

// GetGlobal returns the named global, or nil once the state is closed.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.enter() != nil {
		return lua.LNil
	}
	defer s.mu.Unlock()
	return s.L.GetGlobal(name)
}

// LuaState returns the underlying gopher-lua state. Direct access bypasses
// the lock, so callers must stay on the goroutine that owns the plugin.
func (s *State) LuaState() *lua.LState {
	return s.L
}

func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls report ErrStateClosed.
func (s *State) Close() error {
	if s.enter() != nil {
		return nil
	}
	defer s.mu.Unlock()

	s.L.Close()
	s.closed = true
	return nil
}
