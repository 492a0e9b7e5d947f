// flatpanel-daemon keeps the flat panel connected, runs its schedules and
// bridges it to MQTT until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"flatpanel/host/config"
	"flatpanel/host/mqtt"
	"flatpanel/host/panel"
	"flatpanel/host/schedule"
	"flatpanel/host/script"
)

var (
	configPath  = flag.String("config", "flatpanel.yaml", "Configuration file")
	device      = flag.String("device", "", "Serial device path, or \"emulator\" (overrides config)")
	baud        = flag.Int("baud", 0, "Baud rate (overrides config, ignored for USB CDC)")
	execTimeout = flag.Duration("schedule-timeout", 10*time.Minute, "Longest run of a scheduled command")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run() error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := panel.Open(ctx, &cfg.Serial, cfg.Emulator, cfg.Panel)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Serial.Device, err)
	}
	defer func() {
		// Switch off even though ctx is cancelled by now
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			glog.Errorf("closing panel: %v", err)
		}
	}()

	// Schedules and scripts go through the bridge when it is enabled so
	// that their changes reach the retained state topics
	var dev panel.Device = client
	if cfg.MQTT.Enabled {
		bridge := mqtt.NewBridge(cfg.MQTT, client)
		bridge.Connect()
		defer bridge.Disconnect()
		dev = bridge.Device()
	}

	scripts := script.NewEngine(dev, cfg.ScriptsDir, nil)
	sched := schedule.NewScheduler(dev, scripts, *execTimeout)
	if err := sched.Load(cfg.Schedules); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	glog.Infof("flat panel daemon running on %s with %d schedules", cfg.Serial.Device, len(sched.Entries()))
	<-ctx.Done()
	glog.Info("shutting down")
	return nil
}
