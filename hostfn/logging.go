package hostfn

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
)

// newLogFunction implements log(level, msg): the one host function
// that requires no capability, but still counts against the
// host-call budget like every other guest-visible call.
func newLogFunction(L *lua.LState, ec *rtcontext.ExecutionContext, limits Limits) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		if !checkHostCall(ec, limits) {
			return resourceLimitResult(L)
		}
		level := rtcontext.LogLevel(L.CheckString(1))
		switch level {
		case rtcontext.LogDebug, rtcontext.LogInfo, rtcontext.LogWarn, rtcontext.LogError:
		default:
			level = rtcontext.LogInfo
		}
		msg := L.CheckString(2)
		ec.AddLog(rtcontext.LogMessage{Level: level, Message: msg})
		return result(L, lua.LBool(true), rterror.ResultSuccess)
	})
}
