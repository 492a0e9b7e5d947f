// Package script runs Lua calibration sequences against the panel.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	lua "github.com/yuin/gopher-lua"

	"flatpanel/host/panel"
)

var errBadName = errors.New("invalid script name")

// Engine executes scripts from a directory. Each run gets a fresh Lua state.
type Engine struct {
	dev panel.Device
	dir string
	out io.Writer
}

// NewEngine creates an engine for scripts in dir. Output of print() goes to
// out, or to the log when out is nil.
func NewEngine(dev panel.Device, dir string, out io.Writer) *Engine {
	return &Engine{dev: dev, dir: dir, out: out}
}

// sanitizeName keeps scripts inside the scripts directory and adds the .lua
// extension when it is missing
func sanitizeName(name string) (string, error) {
	if !strings.HasSuffix(name, ".lua") {
		name += ".lua"
	}
	clean := filepath.Base(name)
	if clean != name || clean == ".lua" || strings.Contains(clean, "..") {
		return "", fmt.Errorf("%w: %q", errBadName, name)
	}
	return clean, nil
}

// Path returns the file a script name refers to
func (e *Engine) Path(name string) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.dir, clean), nil
}

// List returns the scripts in the directory, sorted by name
func (e *Engine) List() ([]string, error) {
	files, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".lua" {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RunFile runs a script from the directory until it ends or ctx is done
func (e *Engine) RunFile(ctx context.Context, name string) error {
	path, err := e.Path(name)
	if err != nil {
		return err
	}
	return e.execute(ctx, name, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// RunString runs a chunk of Lua code
func (e *Engine) RunString(ctx context.Context, code string) error {
	return e.execute(ctx, "inline", func(L *lua.LState) error {
		return L.DoString(code)
	})
}

func (e *Engine) execute(ctx context.Context, name string, run func(*lua.LState) error) error {
	glog.Infof("running script %s", name)
	start := time.Now()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	e.registerFunctions(L, ctx)

	if err := run(L); err != nil {
		if ctx.Err() != nil {
			glog.Infof("script %s cancelled", name)
			return ctx.Err()
		}
		return fmt.Errorf("script %s: %w", name, err)
	}

	glog.Infof("script %s finished in %v", name, time.Since(start))
	return nil
}
