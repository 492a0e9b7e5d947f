// flatpanel-host controls the flat panel from an interactive shell, or runs a
// single command given on the command line:
//
//	flatpanel-host -device /dev/ttyACM0 set 500
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"flatpanel/host/config"
	"flatpanel/host/panel"
	"flatpanel/host/script"
)

var (
	configPath = flag.String("config", "flatpanel.yaml", "Configuration file")
	device     = flag.String("device", "", "Serial device path, or \"emulator\" (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config, ignored for USB CDC)")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}

	ctx := context.Background()
	client, err := panel.Open(ctx, &cfg.Serial, cfg.Emulator, cfg.Panel)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Serial.Device, err)
	}
	defer client.Close(ctx)

	shell := ishell.New()
	scripts := script.NewEngine(client, cfg.ScriptsDir, os.Stdout)
	for _, cmd := range commands(client, scripts) {
		shell.AddCmd(cmd)
	}

	if len(args) > 0 {
		return shell.Process(args...)
	}

	shell.SetPrompt(fmt.Sprintf("[%s] > ", cfg.Serial.Device))
	shell.Println("Flat panel connected on", cfg.Serial.Device)
	shell.Run()
	shell.Close()
	return nil
}

func commands(client *panel.Client, scripts *script.Engine) []*ishell.Cmd {
	ctx := context.Background()

	return []*ishell.Cmd{
		{
			Name: "ping",
			Help: "check that the panel answers",
			Func: func(c *ishell.Context) {
				if err := client.Ping(ctx); err != nil {
					c.Err(err)
					return
				}
				c.Println("ok")
			},
		},
		{
			Name: "on",
			Help: "light the panel at the last brightness",
			Func: func(c *ishell.Context) {
				report(c, client, client.On(ctx))
			},
		},
		{
			Name: "off",
			Help: "switch the panel off",
			Func: func(c *ishell.Context) {
				report(c, client, client.Off(ctx))
			},
		},
		{
			Name: "set",
			Help: fmt.Sprintf("set N: light the panel at brightness N (0-%d)", client.MaxBrightness()),
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(fmt.Errorf("usage: set N"))
					return
				}
				level, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("invalid brightness %q", c.Args[0]))
					return
				}
				report(c, client, client.SetBrightness(ctx, level))
			},
		},
		{
			Name: "status",
			Help: "show the calibrator state",
			Func: func(c *ishell.Context) {
				report(c, client, nil)
			},
		},
		{
			Name: "raw",
			Help: "raw ARGS...: send a command line and show the acknowledgment",
			Func: func(c *ishell.Context) {
				if err := client.Exec(ctx, c.Args...); err != nil {
					c.Err(err)
					return
				}
				c.Println("#")
			},
		},
		{
			Name: "run",
			Help: "run SCRIPT: run a Lua calibration script",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(fmt.Errorf("usage: run SCRIPT"))
					return
				}
				if err := scripts.RunFile(ctx, c.Args[0]); err != nil {
					c.Err(err)
					return
				}
				report(c, client, nil)
			},
		},
		{
			Name: "scripts",
			Help: "list the available scripts",
			Func: func(c *ishell.Context) {
				names, err := scripts.List()
				if err != nil {
					c.Err(err)
					return
				}
				if len(names) == 0 {
					c.Println("no scripts")
					return
				}
				c.Println(strings.Join(names, "\n"))
			},
		},
	}
}

func report(c *ishell.Context, client *panel.Client, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Printf("state: %s, brightness: %d/%d\n", client.State(), client.Brightness(), client.MaxBrightness())
}
