package lua

import (
	"fmt"
	"math"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// maxDepth bounds how deep a snapshot table may nest before conversion
// stops descending.
const maxDepth = 32

// Bridge moves plugin data between Lua and Go.
//
// Only data that can be stored in a snapshot crosses: nil, booleans,
// numbers, strings and tables built from them. Functions, userdata and
// coroutines become nil on the Go side.
type Bridge struct {
	L *lua.LState
}

// NewBridge returns a Bridge that allocates tables on L.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value into its snapshot form.
//
// Integral numbers become int64 and other numbers float64. A table whose
// keys are exactly 1..n becomes []any, any other table map[string]any with
// non-string keys formatted as text. Self references are dropped.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]struct{}), 0)
}

func (b *Bridge) toGo(lv lua.LValue, seen map[*lua.LTable]struct{}, depth int) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return number(float64(v))
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if _, cyclic := seen[v]; cyclic || depth >= maxDepth {
			return nil
		}
		seen[v] = struct{}{}
		defer delete(seen, v)
		return b.tableToGo(v, seen, depth+1)
	default:
		return nil
	}
}

func number(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

func (b *Bridge) tableToGo(t *lua.LTable, seen map[*lua.LTable]struct{}, depth int) any {
	n := t.Len()
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })

	if n > 0 && n == count {
		list := make([]any, n)
		for i := 1; i <= n; i++ {
			list[i-1] = b.toGo(t.RawGetInt(i), seen, depth)
		}
		return list
	}

	fields := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		key := k.String()
		if s, ok := k.(lua.LString); ok {
			key = string(s)
		}
		fields[key] = b.toGo(v, seen, depth)
	})
	return fields
}

// ToLuaValue converts snapshot data or a parent property into a Lua value.
//
// Values of any other type are passed to Lua as their fmt representation.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		list := b.L.CreateTable(len(val), 0)
		for i, item := range val {
			list.RawSetInt(i+1, b.ToLuaValue(item))
		}
		return list
	case []string:
		list := b.L.CreateTable(len(val), 0)
		for i, item := range val {
			list.RawSetInt(i+1, lua.LString(item))
		}
		return list
	case map[string]any:
		return b.fieldsToLua(val)
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fieldsToLua fills the table in key order so iteration inside the plugin
// sees the same sequence on every restore.
func (b *Bridge) fieldsToLua(m map[string]any) *lua.LTable {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := b.L.CreateTable(0, len(m))
	for _, k := range keys {
		t.RawSetString(k, b.ToLuaValue(m[k]))
	}
	return t
}

// TableToMap returns lv as a snapshot map. Anything other than a table
// with named fields yields nil for a non-table and an empty map otherwise.
func (b *Bridge) TableToMap(lv lua.LValue) map[string]any {
	if _, ok := lv.(*lua.LTable); !ok {
		return nil
	}
	if m, ok := b.ToGoValue(lv).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
