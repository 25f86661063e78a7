package hostfn

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/value"
)

// ValueFromLua exposes luaToGoValue to callers outside this package
// (the engine, converting a handler's top-level return value).
func ValueFromLua(lv lua.LValue) value.Value {
	return luaToGoValue(lv)
}

// ValueToLua exposes goValueToLua to callers outside this package.
func ValueToLua(L *lua.LState, v value.Value) lua.LValue {
	return goValueToLua(L, v)
}

// AsyncResultToLua converts a host-resolved AsyncResult into the two
// values a resumed ext.suspend(...) call receives as its Lua return
// — matching the (data, code) shape every other host function
// returns, so a handler's resume-side code looks identical regardless
// of whether the call suspended.
func AsyncResultToLua(L *lua.LState, ar rtcontext.AsyncResult) (lua.LValue, int32) {
	if ar.Err != nil {
		return lua.LString(*ar.Err), rterror.ResultInternalError
	}
	return goValueToLua(L, ar.Value), rterror.ResultSuccess
}
