package lua

import (
	"reflect"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestBridgeRoundTrip(t *testing.T) {
	state, _ := NewState()
	defer state.Close()
	bridge := NewBridge(state.LuaState())

	in := map[string]any{
		"title":   "Clock",
		"opacity": 0.5,
		"x":       int64(120),
		"pinned":  true,
		"tags":    []any{"a", "b"},
		"nested":  map[string]any{"k": "v"},
	}

	out := bridge.ToGoValue(bridge.ToLuaValue(in))
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %#v, want %#v", out, in)
	}
}

func TestBridgeIntegerNumbers(t *testing.T) {
	state, _ := NewState()
	defer state.Close()
	bridge := NewBridge(state.LuaState())

	if got := bridge.ToGoValue(glua.LNumber(3)); got != int64(3) {
		t.Errorf("ToGoValue(3) = %#v, want int64(3)", got)
	}
	if got := bridge.ToGoValue(glua.LNumber(1.25)); got != 1.25 {
		t.Errorf("ToGoValue(1.25) = %#v, want 1.25", got)
	}
}

func TestBridgeCircularTable(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`t = {}; t.self = t`); err != nil {
		t.Fatal(err)
	}
	bridge := NewBridge(state.LuaState())

	m, ok := bridge.ToGoValue(state.GetGlobal("t")).(map[string]any)
	if !ok {
		t.Fatal("expected map")
	}
	if m["self"] != nil {
		t.Errorf("circular reference should be cut, got %#v", m["self"])
	}
}

func TestBridgeTableToMap(t *testing.T) {
	state, _ := NewState()
	defer state.Close()
	bridge := NewBridge(state.LuaState())

	if m := bridge.TableToMap(glua.LNil); m != nil {
		t.Errorf("TableToMap(nil) = %#v, want nil", m)
	}

	empty := bridge.TableToMap(state.LuaState().NewTable())
	if empty == nil || len(empty) != 0 {
		t.Errorf("TableToMap({}) = %#v, want empty map", empty)
	}

	if err := state.DoString(`arr = {1, 2}`); err != nil {
		t.Fatal(err)
	}
	if m := bridge.TableToMap(state.GetGlobal("arr")); len(m) != 0 {
		t.Errorf("TableToMap(array) = %#v, want empty map", m)
	}
}

func TestBridgeMixedKeysAndFunctions(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`t = {1, [5] = "five", label = "x", fn = function() end}`); err != nil {
		t.Fatal(err)
	}
	bridge := NewBridge(state.LuaState())

	got := bridge.TableToMap(state.GetGlobal("t"))
	want := map[string]any{"1": int64(1), "5": "five", "label": "x", "fn": nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TableToMap = %#v, want %#v", got, want)
	}
}

func TestBridgeDeepNestingIsCut(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`
		t = {}
		local cur = t
		for i = 1, 100 do cur.next = {}; cur = cur.next end
	`); err != nil {
		t.Fatal(err)
	}
	bridge := NewBridge(state.LuaState())

	depth := 0
	cur, _ := bridge.ToGoValue(state.GetGlobal("t")).(map[string]any)
	for cur != nil {
		depth++
		cur, _ = cur["next"].(map[string]any)
	}
	if depth != maxDepth {
		t.Errorf("depth = %d, want %d", depth, maxDepth)
	}
}

func TestBridgeUnknownGoTypes(t *testing.T) {
	state, _ := NewState()
	defer state.Close()
	bridge := NewBridge(state.LuaState())

	type point struct{ X, Y int }
	if got := bridge.ToLuaValue(point{1, 2}); got != glua.LString("{1 2}") {
		t.Errorf("ToLuaValue(point) = %#v", got)
	}
	list, ok := bridge.ToLuaValue([]string{"a", "b"}).(*glua.LTable)
	if !ok || list.Len() != 2 || list.RawGetInt(2) != glua.LString("b") {
		t.Errorf("ToLuaValue([]string) = %#v", list)
	}
}
