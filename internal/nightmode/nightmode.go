// Package nightmode closes the shade for a configured time-of-day window and
// opens it again when the window ends.
package nightmode

import (
	"time"

	"controlling_shade/internal/config"
	"controlling_shade/internal/logger"
	"controlling_shade/internal/notify"
	"controlling_shade/internal/scheduler"
)

// Sender identifies night mode publications on the bus.
const Sender = "nightmode"

// RetryDelay is the re-check period while local time is unknown.
const RetryDelay = time.Second

type State int

const (
	Killed State = iota
	NoTime
	Waiting
	Active
)

func (s State) String() string {
	switch s {
	case Killed:
		return "Killed"
	case NoTime:
		return "NoTime"
	case Waiting:
		return "Waiting"
	case Active:
		return "Active"
	default:
		return "Unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// TimeSource supplies local time in epoch seconds.
type TimeSource interface {
	Available() bool
	LocalEpoch() int64
	LocalMidnight() int64
}

type Scheduler interface {
	AddTimeout(fn func(), delay time.Duration) scheduler.Handle
	Cancel(h scheduler.Handle)
}

type Publisher interface {
	Publish(sender string, p notify.Property, v any)
}

type Options struct {
	Time      TimeSource
	Scheduler Scheduler
	Bus       Publisher
	Log       *logger.Logger
	Config    config.NightModeConfig
	// OnChange is called on the control goroutine after every state change.
	OnChange func(prev, next State)
}

// Manager must be used from the control goroutine only.
type Manager struct {
	ts       TimeSource
	sch      Scheduler
	bus      Publisher
	log      *logger.Logger
	cfg      config.NightModeConfig
	onChange func(prev, next State)

	state State
	rearm scheduler.Handle
	delay time.Duration
}

func New(opts Options) *Manager {
	return &Manager{
		ts:       opts.Time,
		sch:      opts.Scheduler,
		bus:      opts.Bus,
		log:      logger.OrNop(opts.Log),
		cfg:      opts.Config,
		onChange: opts.OnChange,
	}
}

func (m *Manager) State() State { return m.state }

// Config returns the window in use.
func (m *Manager) Config() config.NightModeConfig { return m.cfg }

// Delay is the delay of the pending re-arm, zero when none is pending.
func (m *Manager) Delay() time.Duration { return m.delay }

// Configure replaces the window and recomputes the state.
func (m *Manager) Configure(cfg config.NightModeConfig) {
	m.cfg = cfg
	m.Update()
}

// Update recomputes the state for the current local time and re-arms itself
// for the next window boundary.
func (m *Manager) Update() {
	m.cancel()

	if m.cfg.Enabled && !m.ts.Available() {
		m.setState(NoTime)
		m.arm(RetryDelay)
		return
	}
	if !m.cfg.Enabled {
		m.setState(Killed)
		return
	}

	startOffset := int64(config.ClampDayOffset(m.cfg.StartTime))
	endOffset := int64(config.ClampDayOffset(m.cfg.EndTime))
	today := m.ts.LocalMidnight()
	now := m.ts.LocalEpoch()

	nextEnd := today + endOffset
	if now > nextEnd {
		today += config.SecondsPerDay
		nextEnd += config.SecondsPerDay
	}
	nextStart := today + startOffset
	if startOffset > endOffset {
		nextStart -= config.SecondsPerDay
	}

	active := nextStart <= now && now <= nextEnd
	boundary := nextStart
	if active {
		m.setState(Active)
		boundary = nextEnd
	} else {
		m.setState(Waiting)
	}
	m.arm(time.Duration(boundary-now+1) * time.Second)
	m.log.Debugw("night_mode_armed", "state", m.state, "next_start", nextStart, "next_end", nextEnd, "in", m.delay)
}

// Stop cancels the pending re-arm.
func (m *Manager) Stop() { m.cancel() }

func (m *Manager) arm(d time.Duration) {
	m.delay = d
	m.rearm = m.sch.AddTimeout(func() {
		m.rearm = 0
		m.delay = 0
		m.Update()
	}, d)
}

func (m *Manager) cancel() {
	if m.rearm != 0 {
		m.sch.Cancel(m.rearm)
		m.rearm = 0
	}
	m.delay = 0
}

func (m *Manager) setState(s State) {
	if s == m.state {
		return
	}
	prev := m.state
	m.state = s
	m.log.Infow("night_mode_changed", "from", prev, "to", s)
	if m.bus != nil {
		m.bus.Publish(Sender, notify.NightMode, s)
	}
	if m.onChange != nil {
		m.onChange(prev, s)
	}
}
