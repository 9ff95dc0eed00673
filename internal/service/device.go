package service

import (
	"context"
	"errors"
	"time"

	"controlling_shade/internal/config"
	"controlling_shade/internal/logger"
	"controlling_shade/internal/models"
	"controlling_shade/internal/motion"
	"controlling_shade/internal/nightmode"
	"controlling_shade/internal/notify"
	"controlling_shade/internal/registry"
	"controlling_shade/internal/scheduler"
	"controlling_shade/internal/timesource"
)

// Sender identifies device-level publications on the bus.
const Sender = "device"

// RestartDelay lets the reply to a restart request go out first.
const RestartDelay = 500 * time.Millisecond

var ErrRestartUnsupported = errors.New("restart is not available")

// SettingsSaver persists settings off the control goroutine. Schedule must
// not block.
type SettingsSaver interface {
	Schedule(s config.Settings)
}

type DeviceOptions struct {
	Driver       motion.Driver
	Switch       motion.Switch
	Settings     config.Settings
	LoopInterval time.Duration
	// Clock defaults to time.Now.
	Clock  func() time.Time
	Saver  SettingsSaver
	Events motion.EventSink
	Log    *logger.Logger
	// Restart is called on the control goroutine RestartDelay after a
	// restart request. It must not block.
	Restart func()
}

// Device wires the controller, the night scheduler and the time source onto
// one scheduler and one control goroutine.
type Device struct {
	log    *logger.Logger
	clock  func() time.Time
	sch    *scheduler.Scheduler
	bus    *notify.Bus
	ctrl   *motion.Controller
	night  *nightmode.Manager
	ts     *timesource.Source
	runner *Runner

	settings config.Settings
	saver    SettingsSaver
	restart  func()

	timeRefresh scheduler.Handle
}

func NewDevice(opts DeviceOptions) *Device {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := logger.OrNop(opts.Log)
	d := &Device{
		log:      log,
		clock:    clock,
		sch:      scheduler.New(clock),
		bus:      notify.NewBus(),
		ts:       timesource.New(clock, opts.Settings.TimeZone),
		settings: opts.Settings,
		saver:    opts.Saver,
		restart:  opts.Restart,
	}
	d.ctrl = motion.New(motion.Options{
		Driver:    opts.Driver,
		Switch:    opts.Switch,
		Scheduler: d.sch,
		Bus:       d.bus,
		Events:    opts.Events,
		Log:       log.Named("motion"),
		Settings:  motionSettings(opts.Settings),
	})
	d.night = nightmode.New(nightmode.Options{
		Time:      d.ts,
		Scheduler: d.sch,
		Bus:       d.bus,
		Log:       log.Named("nightmode"),
		Config:    opts.Settings.NightMode,
		OnChange:  d.nightChanged,
	})
	d.runner = NewRunner(opts.LoopInterval, clock, d.tick, log.Named("runner"))
	d.runner.OnStart = d.start
	d.runner.OnStop = d.stop
	return d
}

func motionSettings(s config.Settings) motion.Settings {
	return motion.Settings{Stepper: s.Stepper, Calibration: s.Calibration}
}

// Run drives the device until ctx is canceled.
func (d *Device) Run(ctx context.Context) { d.runner.Run(ctx) }

// Do runs fn on the control goroutine.
func (d *Device) Do(ctx context.Context, fn func() error) error { return d.runner.Do(ctx, fn) }

// Subscribe registers fn for property changes. fn runs on the control
// goroutine and must not block. Position targets arrive in the same
// orientation as snapshot and property writes.
func (d *Device) Subscribe(name string, fn func(notify.Notification)) *notify.Subscription {
	return d.bus.Subscribe(name, func(n notify.Notification) {
		if pct, ok := n.Value.(float64); ok && n.Property == notify.PositionTarget {
			n.Value = registry.DisplayTarget(d.settings, pct)
		}
		fn(n)
	})
}

func (d *Device) tick(now time.Time) {
	d.ctrl.Tick(now)
	d.sch.Tick()
}

func (d *Device) start() {
	d.ctrl.Begin()
	d.ctrl.Ready()
	d.refreshTime()
}

func (d *Device) stop() {
	d.ctrl.Shutdown()
	d.night.Stop()
	d.sch.Cancel(d.timeRefresh)
}

// refreshTime re-checks the clock every second until it is trusted and
// daily afterwards.
func (d *Device) refreshTime() {
	available := d.ts.Update()
	d.night.Update()
	delay := timesource.UpdateInterval
	if !available {
		delay = nightmode.RetryDelay
	}
	d.timeRefresh = d.sch.AddTimeout(d.refreshTime, delay)
}

func (d *Device) nightChanged(prev, next nightmode.State) {
	switch {
	case next == nightmode.Active:
		d.homeAndMove(100, "night_mode_close")
	case prev == nightmode.Active && next == nightmode.Waiting:
		d.homeAndMove(0, "night_mode_open")
	}
}

func (d *Device) homeAndMove(percent float64, reason string) {
	d.log.Infow(reason, "target", percent)
	d.ctrl.HomeAndMove(percent).Catch(func(err error) {
		d.log.Warnw(reason+"_failed", "err", err)
	})
}

// The methods below run on the control goroutine.

func (d *Device) snapshot() models.ShadeState {
	s := d.ctrl.Snapshot()
	return models.ShadeState{
		State:          s.State.String(),
		Homed:          s.Runtime.Homed,
		Moving:         s.Runtime.Moving,
		Position:       s.Runtime.Position,
		PositionTarget: registry.DisplayTarget(d.settings, s.Runtime.PositionTarget),
		Offset:         s.Runtime.Offset,
		EndstopPressed: s.EndstopPressed,
		NightMode:      d.night.State().String(),
		UpdatedAt:      d.clock().UTC(),
	}
}

func (d *Device) homing() error {
	p := d.ctrl.Homing()
	if p.Settled() {
		return p.Err()
	}
	return nil
}

func (d *Device) moveTo(displayed float64) error {
	return d.ctrl.MoveTo(registry.DisplayTarget(d.settings, displayed))
}

func (d *Device) scheduleRestart() error {
	if d.restart == nil {
		return ErrRestartUnsupported
	}
	d.log.Warnw("restart_requested", "in", RestartDelay)
	d.sch.AddTimeout(d.restart, RestartDelay)
	return nil
}

func (d *Device) setProperty(name, raw string) error {
	if name == registry.PositionTarget {
		pct, err := registry.ParseTarget(d.settings, raw)
		if err != nil {
			return err
		}
		return d.ctrl.MoveTo(pct)
	}

	f, err := registry.Lookup(name)
	if err != nil {
		return err
	}
	next, err := f.Set(d.settings, raw)
	if err != nil {
		return err
	}
	if err := d.apply(next, f.Group); err != nil {
		return err
	}
	d.log.Infow("property_changed", "name", name, "value", f.Get(next))
	return nil
}

// apply hands changed settings to the component that owns them, keeps them
// and schedules a save.
func (d *Device) apply(next config.Settings, group registry.Group) error {
	switch group {
	case registry.Stepper, registry.Calibration:
		if err := d.ctrl.ApplySettings(motionSettings(next)); err != nil {
			return err
		}
	case registry.NightMode:
		d.night.Configure(next.NightMode)
	case registry.System:
		d.ts.SetOffset(next.TimeZone)
		d.night.Update()
	}
	d.settings = next
	d.bus.Publish(Sender, notify.Config, registry.Values(next))
	if d.saver != nil {
		d.saver.Schedule(next)
	}
	return nil
}
