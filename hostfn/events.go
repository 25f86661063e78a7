package hostfn

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/policy"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
)

// newEmitTable builds the `emit` surface: callable directly as
// emit('name', payload) via a __call metamethod (matching the lexical
// inference pattern in §4.2), plus emit.toast(msg) as sugar for
// emitting a 'toast' event.
func newEmitTable(L *lua.LState, ec *rtcontext.ExecutionContext, limits Limits) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("toast", L.NewFunction(emitToast(ec, limits)))

	mt := L.NewTable()
	mt.RawSetString("__call", L.NewFunction(emitEvent(ec, limits)))
	L.SetMetatable(t, mt)

	return t
}

func emitEvent(ec *rtcontext.ExecutionContext, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		// Argument 1 is the emit table itself (the __call receiver);
		// the event name and payload follow.
		name := L.CheckString(2)
		if !ec.Checker().CanEmit(name) {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		payload := luaToGoValue(L.Get(3))
		switch admitEffect(limits, policy.EffectEvent, ec.EventCount(), limits.MaxEvents, name, payload) {
		case policy.Reject:
			return resourceLimitResult(L)
		case policy.Proceed:
			ec.AddEvent(rtcontext.EmittedEvent{Name: name, Payload: payload})
		}
		return result(L, lua.LBool(true), rterror.ResultSuccess)
	}
}

func emitToast(ec *rtcontext.ExecutionContext, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		if !ec.Checker().CanEmit("toast") {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		msg := luaToGoValue(L.Get(1))
		switch admitEffect(limits, policy.EffectEvent, ec.EventCount(), limits.MaxEvents, "toast", msg) {
		case policy.Reject:
			return resourceLimitResult(L)
		case policy.Proceed:
			ec.AddEvent(rtcontext.EmittedEvent{Name: "toast", Payload: msg})
		}
		return result(L, lua.LBool(true), rterror.ResultSuccess)
	}
}
