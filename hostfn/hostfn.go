// Package hostfn installs the guest-visible host-function surface as
// Lua closures over a shared rtcontext.ExecutionContext: the state,
// emit, view, ext, and log tables the wrapped handler prologue (§4.3)
// aliases into locals, plus the always-available now() global.
//
// Grounded on original_source/.../host_functions/{mod,state,events,
// view,extension,logging}.rs for the capability-check-then-effect-
// record ordering each function follows.
package hostfn

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/policy"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/value"
)

// Limits bounds a single invocation's host-function usage, mirroring
// the façade's configured resource ceilings. Policy governs what
// happens once MaxStateMutations/MaxEvents is reached; a nil Policy
// falls back to the literal strict-reject behavior this package
// enforced before the policy package existed.
type Limits struct {
	MaxHostCalls      int
	MaxStateMutations int
	MaxEvents         int
	Policy            policy.EffectPolicy
}

// admitEffect consults limits.Policy (defaulting to strict rejection)
// for one more effect of kind against its configured cap, recording
// the outcome on the policy for diagnostics.
func admitEffect(limits Limits, kind policy.EffectKind, current, limit int, key string, value any) policy.Verdict {
	pol := limits.Policy
	if pol == nil {
		if limit > 0 && current >= limit {
			return policy.Reject
		}
		return policy.Proceed
	}
	v := pol.Admit(kind, current, limit)
	pol.Record(kind, v, key, value)
	return v
}

// Install binds the full host-function surface onto L as the globals
// the §4.3 wrapping prologue expects: __panelrt_state, __panelrt_args,
// __panelrt_emit, __panelrt_view, __panelrt_ext, __panelrt_log, plus a
// directly-global now().
func Install(L *lua.LState, ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits) {
	L.SetGlobal("__panelrt_state", newStateTable(L, ec, limits))
	L.SetGlobal("__panelrt_args", goValueToLua(L, ec.Wasm().Args))
	L.SetGlobal("__panelrt_emit", newEmitTable(L, ec, limits))
	L.SetGlobal("__panelrt_view", newViewTable(L, ec, limits))
	L.SetGlobal("__panelrt_ext", newExtTable(L, ec, registry, limits))
	L.SetGlobal("__panelrt_log", newLogFunction(L, ec, limits))
	L.SetGlobal("now", L.NewFunction(nowFn))
}

// checkHostCall increments the host-call counter and reports whether
// the invocation is still within budget. Every host function checks
// capability first and calls this second, so a call that is both
// over-budget and lacking capability surfaces PERMISSION_DENIED rather
// than RESOURCE_LIMIT (§4.8).
func checkHostCall(ec *rtcontext.ExecutionContext, limits Limits) bool {
	n := ec.IncrementHostCalls()
	if limits.MaxHostCalls > 0 && n > limits.MaxHostCalls {
		return false
	}
	return true
}

// result pushes (data, code) as the two Lua return values every host
// function produces, and returns 2 (the Lua multi-return count).
func result(L *lua.LState, data lua.LValue, code int32) int {
	if data == nil {
		data = lua.LNil
	}
	L.Push(data)
	L.Push(lua.LNumber(code))
	return 2
}

func resourceLimitResult(L *lua.LState) int {
	return result(L, lua.LNil, rterror.ResultResourceLimit)
}

func permissionDeniedResult(L *lua.LState) int {
	return result(L, lua.LNil, rterror.ResultPermissionDenied)
}

func nowFn(L *lua.LState) int {
	L.Push(lua.LNumber(time.Now().UnixMilli()))
	return 1
}

// goValueToLua converts a value.Value into the equivalent lua.LValue
// tree, for exposing read-only boundary data (args, state snapshot
// reads) to the guest.
func goValueToLua(L *lua.LState, v value.Value) lua.LValue {
	switch v.Kind() {
	case value.KindNull:
		return lua.LNil
	case value.KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case value.KindNumber:
		n, _ := v.AsNumber()
		return lua.LNumber(n)
	case value.KindString:
		s, _ := v.AsString()
		return lua.LString(s)
	case value.KindArray:
		arr, _ := v.AsArray()
		t := L.NewTable()
		for i, item := range arr {
			t.RawSetInt(i+1, goValueToLua(L, item))
		}
		return t
	case value.KindMap:
		t := L.NewTable()
		for _, k := range v.Keys() {
			fv, _ := v.Field(k)
			t.RawSetString(k, goValueToLua(L, fv))
		}
		return t
	default:
		return lua.LNil
	}
}

// luaToGoValue converts a lua.LValue back into a value.Value, for
// recording mutations/events/view-commands the guest produced.
func luaToGoValue(lv lua.LValue) value.Value {
	switch v := lv.(type) {
	case *lua.LNilType:
		return value.Null
	case lua.LBool:
		return value.Bool(bool(v))
	case lua.LNumber:
		return value.Number(float64(v))
	case lua.LString:
		return value.String(string(v))
	case *lua.LTable:
		return luaTableToValue(v)
	default:
		return value.Null
	}
}

func luaTableToValue(t *lua.LTable) value.Value {
	// A table with a contiguous 1..n integer key run and no string
	// keys is treated as an array; otherwise it's a map.
	maxN := t.Len()
	isArray := maxN > 0
	if isArray {
		t.ForEach(func(k, _ lua.LValue) {
			if _, ok := k.(lua.LNumber); !ok {
				isArray = false
			}
		})
	}

	if isArray {
		items := make([]value.Value, 0, maxN)
		for i := 1; i <= maxN; i++ {
			items = append(items, luaToGoValue(t.RawGetInt(i)))
		}
		return value.Array(items...)
	}

	out := value.Map()
	t.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			out = out.WithField(string(ks), luaToGoValue(v))
		}
	})
	return out
}

// argsFromLua collects the Lua call stack's varargs (from start
// through L.GetTop()) into a value.Value slice, for ext.suspend-style
// functions that forward arbitrary arguments.
func argsFromLua(L *lua.LState, start int) []value.Value {
	top := L.GetTop()
	if top < start {
		return nil
	}
	out := make([]value.Value, 0, top-start+1)
	for i := start; i <= top; i++ {
		out = append(out, luaToGoValue(L.Get(i)))
	}
	return out
}
