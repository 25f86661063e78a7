package hostfn

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
)

func newViewTable(L *lua.LState, ec *rtcontext.ExecutionContext, limits Limits) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("set_filter", L.NewFunction(viewCommand(ec, limits, rtcontext.ViewSetFilter)))
	t.RawSetString("scroll_to", L.NewFunction(viewCommand(ec, limits, rtcontext.ViewScrollTo)))
	t.RawSetString("focus", L.NewFunction(viewCommand(ec, limits, rtcontext.ViewFocus)))
	t.RawSetString("custom", L.NewFunction(viewCommand(ec, limits, rtcontext.ViewCustom)))
	return t
}

// viewCommand builds a view.<verb>(componentID, args) closure for the
// given ViewCommandType; all four share the same capability shape
// (view:update:{id} or :*) and effect recording.
func viewCommand(ec *rtcontext.ExecutionContext, limits Limits, cmdType rtcontext.ViewCommandType) lua.LGFunction {
	return func(L *lua.LState) int {
		componentID := L.CheckString(1)
		if !ec.Checker().CanUpdateView(componentID) {
			return permissionDeniedResult(L)
		}
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		args := luaToGoValue(L.Get(2))
		ec.AddViewCommand(rtcontext.ViewCommand{Type: cmdType, ComponentID: componentID, Args: args})
		return result(L, lua.LBool(true), rterror.ResultSuccess)
	}
}
