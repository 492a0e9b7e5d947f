package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	lua "github.com/yuin/gopher-lua"
)

// registerFunctions exposes the panel to the Lua state
func (e *Engine) registerFunctions(L *lua.LState, ctx context.Context) {
	L.SetGlobal("on", L.NewFunction(func(L *lua.LState) int {
		e.check(L, e.dev.On(ctx))
		return 0
	}))
	L.SetGlobal("off", L.NewFunction(func(L *lua.LState) int {
		e.check(L, e.dev.Off(ctx))
		return 0
	}))
	L.SetGlobal("set", L.NewFunction(func(L *lua.LState) int {
		e.check(L, e.dev.SetBrightness(ctx, L.CheckInt(1)))
		return 0
	}))
	L.SetGlobal("brightness", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(e.dev.Brightness()))
		return 1
	}))
	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckInt(1)
		t := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			L.RaiseError("interrupted")
		}
		return 0
	}))
	L.SetGlobal("print", L.NewFunction(e.luaPrint))
}

func (e *Engine) check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func (e *Engine) luaPrint(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	msg := strings.Join(parts, "\t")

	if e.out != nil {
		fmt.Fprintln(e.out, msg)
	} else {
		glog.Infof("[lua] %s", msg)
	}
	return 0
}
