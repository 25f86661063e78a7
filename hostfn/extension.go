package hostfn

import (
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/value"
)

// newExtTable builds the `ext` surface: the literal ext.suspend/
// exists/methods/list functions, plus ext.<name>.<method>(...) sugar
// implemented via an __index metamethod that builds a per-extension
// proxy table on first access, so a handler may write
// `ext.http.get(url)` as well as `ext.suspend("http", "get", url)`.
func newExtTable(L *lua.LState, ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("suspend", L.NewFunction(extSuspend(ec, registry, limits)))
	t.RawSetString("exists", L.NewFunction(extExists(ec, registry, limits)))
	t.RawSetString("methods", L.NewFunction(extMethods(ec, registry, limits)))
	t.RawSetString("list", L.NewFunction(extList(ec, registry, limits)))

	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(extIndex(ec, registry, limits)))
	L.SetMetatable(t, mt)

	return t
}

// extIndex implements ext.<name>, returning a proxy table whose own
// __index metamethod turns ext.<name>.<method>(args...) into a call to
// doSuspend(name, method, args...).
func extIndex(ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(2)

		proxy := L.NewTable()
		proxyMt := L.NewTable()
		proxyMt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
			method := L.CheckString(2)
			fn := L.NewFunction(func(L *lua.LState) int {
				return doSuspend(L, ec, registry, limits, name, method, argsFromLua(L, 1))
			})
			L.Push(fn)
			return 1
		}))
		L.SetMetatable(proxy, proxyMt)

		L.Push(proxy)
		return 1
	}
}

func extSuspend(ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		method := L.CheckString(2)
		return doSuspend(L, ec, registry, limits, name, method, argsFromLua(L, 3))
	}
}

// doSuspend implements ext_suspend's documented check order (§4.8):
// extension existence, then method existence, then capability, then
// the host-call budget. Only once all four pass is the suspension
// recorded and the guest coroutine parked — a yield from inside this
// Go-registered function returns control to the L.Resume call that
// is running the coroutine, and the coroutine stays parked until the
// host delivers AsyncResult and resumes the instance.
func doSuspend(L *lua.LState, ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits, name, method string, args []value.Value) int {
	if !registry.Exists(name) {
		return result(L, lua.LNil, rterror.ResultNotFound)
	}
	if !registry.HasMethod(name, method) {
		return result(L, lua.LNil, rterror.ResultNotFound)
	}
	if !ec.Checker().CanUseExt(name) {
		return permissionDeniedResult(L)
	}
	if !checkHostCall(ec, limits) {
		return resourceLimitResult(L)
	}

	id := uuid.NewString()
	ec.Suspend(rtcontext.SuspensionRecord{
		ID:          id,
		Extension:   name,
		Method:      method,
		Args:        args,
		SuspendedAt: time.Now(),
	})

	return L.Yield(lua.LString(id))
}

func extExists(ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		name := L.CheckString(1)
		return result(L, lua.LBool(registry.Exists(name)), rterror.ResultSuccess)
	}
}

func extMethods(ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		name := L.CheckString(1)
		if !registry.Exists(name) {
			return result(L, lua.LNil, rterror.ResultNotFound)
		}
		methods := registry.Methods(name)
		t := L.NewTable()
		for i, m := range methods {
			t.RawSetInt(i+1, lua.LString(m))
		}
		return result(L, t, rterror.ResultSuccess)
	}
}

func extList(ec *rtcontext.ExecutionContext, registry *extension.Registry, limits Limits) lua.LGFunction {
	return func(L *lua.LState) int {
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		names := registry.List()
		t := L.NewTable()
		for i, n := range names {
			t.RawSetInt(i+1, lua.LString(n))
		}
		return result(L, t, rterror.ResultSuccess)
	}
}
