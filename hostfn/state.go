package hostfn

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/policy"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
)

func newStateTable(L *lua.LState, ec *rtcontext.ExecutionContext, limits Limits) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("get", L.NewFunction(stateGet(ec, limits)))
	t.RawSetString("set", L.NewFunction(stateSet(ec, limits)))
	t.RawSetString("delete", L.NewFunction(stateDelete(ec, limits)))
	t.RawSetString("has", L.NewFunction(stateHas(ec, limits)))
	t.RawSetString("keys", L.NewFunction(stateKeys(ec, limits)))
	return t
}

func stateGet(ec *rtcontext.ExecutionContext, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		key := L.CheckString(1)
		if !ec.Checker().CanReadState(key) {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		v, ok := ec.Wasm().State.Field(key)
		if !ok {
			return result(L, lua.LNil, rterror.ResultSuccess)
		}
		return result(L, goValueToLua(L, v), rterror.ResultSuccess)
	}
}

func stateSet(ec *rtcontext.ExecutionContext, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		key := L.CheckString(1)
		if !ec.Checker().CanWriteState(key) {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		val := luaToGoValue(L.Get(2))
		switch admitEffect(limits, policy.EffectMutation, ec.MutationCount(), limits.MaxStateMutations, key, val) {
		case policy.Reject:
			return resourceLimitResult(L)
		case policy.Proceed:
			ec.AddMutation(rtcontext.StateMutation{Key: key, Operation: rtcontext.MutationSet, Value: val})
		}
		return result(L, lua.LBool(true), rterror.ResultSuccess)
	}
}

func stateDelete(ec *rtcontext.ExecutionContext, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		key := L.CheckString(1)
		if !ec.Checker().CanWriteState(key) {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		switch admitEffect(limits, policy.EffectMutation, ec.MutationCount(), limits.MaxStateMutations, key, nil) {
		case policy.Reject:
			return resourceLimitResult(L)
		case policy.Proceed:
			ec.AddMutation(rtcontext.StateMutation{Key: key, Operation: rtcontext.MutationDelete})
		}
		return result(L, lua.LBool(true), rterror.ResultSuccess)
	}
}

func stateHas(ec *rtcontext.ExecutionContext, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		key := L.CheckString(1)
		if !ec.Checker().CanReadState(key) {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		_, ok := ec.Wasm().State.Field(key)
		return result(L, lua.LBool(ok), rterror.ResultSuccess)
	}
}

func stateKeys(ec *rtcontext.ExecutionContext, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		if !ec.Checker().CanReadAllState() {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		keys := ec.Wasm().State.Keys()
		t := L.NewTable()
		for i, k := range keys {
			t.RawSetInt(i+1, lua.LString(k))
		}
		return result(L, t, rterror.ResultSuccess)
	}
}
