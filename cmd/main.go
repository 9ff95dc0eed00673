package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"time"

	"controlling_shade/internal/actuator"
	"controlling_shade/internal/config"
	"controlling_shade/internal/endstop"
	"controlling_shade/internal/handlers"
	"controlling_shade/internal/logger"
	"controlling_shade/internal/repository"
	"controlling_shade/internal/repository/db"
	"controlling_shade/internal/server"
	"controlling_shade/internal/service"

	"github.com/alecthomas/kingpin/v2"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	_ "controlling_shade/docs"
)

const (
	shutdownTimeout = 10 * time.Second
	loadTimeout     = 5 * time.Second
	// simulated carriage starts this many steps above the switch
	simStart = 2000
)

var (
	configDir = kingpin.Flag("config-dir", "directory holding config.yml").Default("configs").String()
	dbPath    = kingpin.Flag("db", "sqlite database file (overrides db.path)").String()
	logLevel  = kingpin.Flag("log-level", "debug, info, warn or error (overrides log.level)").String()
	port      = kingpin.Flag("port", "HTTP port (overrides http.port)").String()
)

// @title        Shade controller API
// @version      1.0
// @description  Motion control for a motorized shade: homing, positioning and night mode.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	kingpin.Parse()

	cfg, err := config.Load(viper.New(), *configDir)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	applyFlags(&cfg)
	log := logger.Get(cfg.Log.Level)

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}

	repos := repository.NewRepository(sqlDB)
	restart, err := run(cfg, repos, log)
	if cerr := sqlDB.Close(); cerr != nil {
		log.Errorw("failed to close sqlite", "err", cerr)
	}
	if err != nil {
		log.Fatalw("controller stopped", "err", err)
	}
	if restart {
		reexec(log)
	}
}

func applyFlags(cfg *config.Config) {
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *port != "" {
		cfg.HTTP.Port = *port
	}
}

// run serves until a signal or a restart request. It reports whether the
// process should start over.
func run(cfg config.Config, repos *repository.Repository, log *logger.Logger) (bool, error) {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	settings := loadSettings(ctx, repos.ConfigRepo, cfg.Settings, log)

	hw, err := openHardware(cfg.Hardware)
	if err != nil {
		return false, err
	}
	defer hw.close(log)
	if cfg.Hardware.Chip == "" {
		log.Infow("no gpio chip configured; running on simulated hardware")
	}

	var wg sync.WaitGroup
	saver := service.NewSaver(repos.ConfigRepo, service.SaveInterval, log.Named("saver"))
	events := service.NewEventWriter(repos.EventRepo, time.Now, log.Named("events"))
	background(&wg, ctx, saver.Run)
	background(&wg, ctx, events.Run)

	var restartRequested bool
	dev := service.NewDevice(service.DeviceOptions{
		Driver:       actuator.NewStepper(hw.out),
		Switch:       endstop.New(hw.in, cfg.Hardware.EndstopHold),
		Settings:     settings,
		LoopInterval: cfg.Hardware.LoopInterval,
		Saver:        saver,
		Events:       events,
		Log:          log.Named("device"),
		Restart: func() {
			restartRequested = true
			cancel()
		},
	})
	deviceDone := make(chan struct{})
	go func() {
		defer close(deviceDone)
		dev.Run(ctx)
	}()

	services := service.NewService(repos, dev, service.AuthConfig{
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
	})
	api := handlers.NewHandler(services, log.Named("http"), cfg.Auth.Enabled)

	srv := &server.Server{}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Run(cfg.HTTP.Port, api.InitRoutes()) }()
	log.Infow("controller started", "port", cfg.HTTP.Port, "auth", cfg.Auth.Enabled)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		cancel()
	}
	log.Infow("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// the device loop owns restartRequested until it has stopped
	<-deviceDone
	wg.Wait()
	return restartRequested && runErr == nil, runErr
}

func background(wg *sync.WaitGroup, ctx context.Context, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn(ctx)
	}()
}

// loadSettings prefers the stored settings over the file defaults. Stored
// values get the same clamping as the config file.
func loadSettings(ctx context.Context, repo repository.ConfigRepo, fallback config.Settings, log *logger.Logger) config.Settings {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	stored, ok, err := repo.Load(ctx)
	switch {
	case err != nil:
		log.Errorw("failed to load stored settings; using config file", "err", err)
		return fallback
	case !ok:
		return fallback
	}
	stored = stored.Normalize()
	if err := stored.Validate(); err != nil {
		log.Errorw("stored settings invalid; using config file", "err", err)
		return fallback
	}
	return stored
}

type hardware struct {
	out     actuator.Output
	in      endstop.Input
	closers []func() error
}

func (h hardware) close(log *logger.Logger) {
	for _, c := range h.closers {
		if err := c(); err != nil {
			log.Errorw("failed to release gpio", "err", err)
		}
	}
}

func openHardware(hw config.HardwareConfig) (hardware, error) {
	if hw.Chip == "" {
		rig := actuator.NewRig(simStart)
		return hardware{out: rig, in: rig}, nil
	}
	coils, err := actuator.OpenGPIOCoils(hw.Chip, hw.CoilPins, hw.EnablePin)
	if err != nil {
		return hardware{}, err
	}
	sw, err := endstop.OpenGPIO(hw.Chip, hw.EndstopPin, hw.EndstopActiveHigh)
	if err != nil {
		return hardware{}, errors.Join(err, coils.Close())
	}
	return hardware{out: coils, in: sw, closers: []func() error{coils.Close, sw.Close}}, nil
}

func reexec(log *logger.Logger) {
	exe, err := os.Executable()
	if err != nil {
		log.Fatalw("restart failed", "err", err)
	}
	log.Infow("restarting")
	if err := unix.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Fatalw("restart failed", "err", err)
	}
}
