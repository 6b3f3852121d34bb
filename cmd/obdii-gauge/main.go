package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nobody-OS/OBDII-Gauge/internal/ble"
	"github.com/Nobody-OS/OBDII-Gauge/internal/config"
	"github.com/Nobody-OS/OBDII-Gauge/internal/core"
	"github.com/Nobody-OS/OBDII-Gauge/internal/hardware"
	"github.com/Nobody-OS/OBDII-Gauge/internal/logger"
	"github.com/Nobody-OS/OBDII-Gauge/internal/messaging"
	"github.com/Nobody-OS/OBDII-Gauge/internal/server"
)

func main() {
	var serviceLogLevel int
	var configPath string
	var demo bool
	var listen string
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&configPath, "config", "/etc/obdii-gauge/config.yaml", "Path to config file")
	flag.BoolVar(&demo, "demo", false, "Run with a synthetic adapter instead of Bluetooth")
	flag.StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")

	flag.Parse()

	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	cfg, err := config.Load(configPath)
	if err != nil {
		l.Fatalf("Failed to load config: %v", err)
	}
	if listen != "" {
		cfg.Server.ListenAddr = listen
	}

	l.Infof("Starting OBD-II gauge...")

	var transport ble.Transport
	if demo || cfg.Adapter.Type == "demo" {
		l.Infof("Using synthetic demo adapter")
		transport = ble.NewDemoTransport()
	} else {
		transport = ble.NewNUSTransport(l)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	system := core.NewSystem(cfg, transport, nil, hardware.NewBacklightController(hardware.BacklightConfig{
		BrightnessPath: cfg.Backlight.BrightnessPath,
		DimLevel:       cfg.Backlight.DimLevel,
		FullLevel:      cfg.Backlight.FullLevel,
		ShiftLightChip: cfg.Backlight.ShiftLightChip,
		ShiftLightLine: cfg.Backlight.ShiftLightLine,
	}, l), l)

	redis := messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, l, messaging.Callbacks{
		ModeCallback:   system.SetMode,
		RescanCallback: system.Rescan,
	})
	system.SetMessaging(redis)

	web := server.New(cfg.Server.ListenAddr, system, l)
	system.AttachWeb(web)

	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	go func() {
		if err := web.Run(ctx); err != nil {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	cancel()
	system.Stop()
	l.Infof("Shutdown complete")
}
