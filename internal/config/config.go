package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SecondsPerDay bounds the night window offsets.
const SecondsPerDay = 24 * 60 * 60

// Config is the full process configuration. Settings holds the part that can
// be changed at runtime and is persisted by the config store.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Hardware HardwareConfig `mapstructure:"hardware"`
	Settings `mapstructure:",squash"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// HardwareConfig describes GPIO wiring. An empty Chip runs the controller
// against simulated hardware.
type HardwareConfig struct {
	Chip              string        `mapstructure:"chip"`
	CoilPins          []int         `mapstructure:"coil_pins"`
	EnablePin         int           `mapstructure:"enable_pin"`
	EndstopPin        int           `mapstructure:"endstop_pin"`
	EndstopActiveHigh bool          `mapstructure:"endstop_active_high"`
	EndstopHold       time.Duration `mapstructure:"endstop_hold"`
	LoopInterval      time.Duration `mapstructure:"loop_interval"`
}

// Settings is the runtime-tunable device configuration.
type Settings struct {
	Stepper        StepperConfig     `mapstructure:"stepper" json:"stepper"`
	Calibration    CalibrationConfig `mapstructure:"calibration" json:"calibration"`
	NightMode      NightModeConfig   `mapstructure:"night_mode" json:"night_mode"`
	TimeZone       float64           `mapstructure:"time_zone" json:"time_zone"`
	InvertPosition bool              `mapstructure:"invert_position" json:"invert_position"`
}

// StepperConfig holds speeds in steps per second and distances in steps.
type StepperConfig struct {
	Reverse           bool    `mapstructure:"reverse" json:"reverse"`
	Resolution        int     `mapstructure:"resolution" json:"resolution"`
	OpenSpeed         int     `mapstructure:"open_speed" json:"open_speed"`
	CloseSpeed        int     `mapstructure:"close_speed" json:"close_speed"`
	Acceleration      int     `mapstructure:"acceleration" json:"acceleration"`
	HomingSpeed       int     `mapstructure:"homing_speed" json:"homing_speed"`
	HomingSpeedSecond int     `mapstructure:"homing_speed_second" json:"homing_speed_second"`
	HomingSteps       int     `mapstructure:"homing_steps" json:"homing_steps"`
	HomingStepsMax    int     `mapstructure:"homing_steps_max" json:"homing_steps_max"`
	HomingFineFactor  float64 `mapstructure:"homing_fine_factor" json:"homing_fine_factor"`
}

// CalibrationConfig may only change while the controller is in StandBy.
type CalibrationConfig struct {
	OpenPosition int `mapstructure:"open_position" json:"open_position"`
	Offset       int `mapstructure:"offset" json:"offset"`
}

// NightModeConfig offsets are seconds since local midnight. StartTime greater
// than EndTime means the window wraps past midnight.
type NightModeConfig struct {
	Enabled   bool `mapstructure:"enabled" json:"enabled"`
	StartTime int  `mapstructure:"start_time" json:"start_time"`
	EndTime   int  `mapstructure:"end_time" json:"end_time"`
}

var (
	ErrInvalidStepper     = errors.New("invalid stepper config")
	ErrInvalidCalibration = errors.New("invalid calibration config")
	ErrInvalidHardware    = errors.New("invalid hardware config")
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.signing_key", d.Auth.SigningKey)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)

	v.SetDefault("hardware.chip", d.Hardware.Chip)
	v.SetDefault("hardware.coil_pins", d.Hardware.CoilPins)
	v.SetDefault("hardware.enable_pin", d.Hardware.EnablePin)
	v.SetDefault("hardware.endstop_pin", d.Hardware.EndstopPin)
	v.SetDefault("hardware.endstop_active_high", d.Hardware.EndstopActiveHigh)
	v.SetDefault("hardware.endstop_hold", d.Hardware.EndstopHold)
	v.SetDefault("hardware.loop_interval", d.Hardware.LoopInterval)

	v.SetDefault("stepper.reverse", d.Stepper.Reverse)
	v.SetDefault("stepper.resolution", d.Stepper.Resolution)
	v.SetDefault("stepper.open_speed", d.Stepper.OpenSpeed)
	v.SetDefault("stepper.close_speed", d.Stepper.CloseSpeed)
	v.SetDefault("stepper.acceleration", d.Stepper.Acceleration)
	v.SetDefault("stepper.homing_speed", d.Stepper.HomingSpeed)
	v.SetDefault("stepper.homing_speed_second", d.Stepper.HomingSpeedSecond)
	v.SetDefault("stepper.homing_steps", d.Stepper.HomingSteps)
	v.SetDefault("stepper.homing_steps_max", d.Stepper.HomingStepsMax)
	v.SetDefault("stepper.homing_fine_factor", d.Stepper.HomingFineFactor)

	v.SetDefault("calibration.open_position", d.Calibration.OpenPosition)
	v.SetDefault("calibration.offset", d.Calibration.Offset)

	v.SetDefault("night_mode.enabled", d.NightMode.Enabled)
	v.SetDefault("night_mode.start_time", d.NightMode.StartTime)
	v.SetDefault("night_mode.end_time", d.NightMode.EndTime)

	v.SetDefault("time_zone", d.TimeZone)
	v.SetDefault("invert_position", d.InvertPosition)
}

// Default returns the factory configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Port: "8080"},
		DB:   DBConfig{Path: "shade.db"},
		Log:  LogConfig{Level: "info"},
		Auth: AuthConfig{
			Enabled:    false,
			SigningKey: "change-me",
			TokenTTL:   time.Hour,
		},
		Hardware: HardwareConfig{
			CoilPins:     []int{17, 18, 27, 22},
			EnablePin:    -1,
			EndstopPin:   20,
			EndstopHold:  20 * time.Millisecond,
			LoopInterval: 2 * time.Millisecond,
		},
		Settings: DefaultSettings(),
	}
}

// DefaultSettings returns the factory device settings.
func DefaultSettings() Settings {
	return Settings{
		Stepper: StepperConfig{
			Resolution:        4096,
			OpenSpeed:         300,
			CloseSpeed:        500,
			Acceleration:      300,
			HomingSpeed:       300,
			HomingSpeedSecond: 100,
			HomingSteps:       300,
			HomingStepsMax:    4096 * 10,
			HomingFineFactor:  1.5,
		},
		Calibration: CalibrationConfig{
			OpenPosition: 4096 * 10,
			Offset:       100,
		},
		NightMode: NightModeConfig{
			StartTime: 0,
			EndTime:   10 * 60 * 60,
		},
		TimeZone: 5.0,
	}
}

// Load reads config.yml from dir (a missing file is fine), applies SHADE_*
// environment overrides and validates the result.
func Load(v *viper.Viper, dir string) (Config, error) {
	SetDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetEnvPrefix("SHADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Settings = cfg.Settings.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the process configuration.
func (c Config) Validate() error {
	if c.Hardware.LoopInterval <= 0 {
		return fmt.Errorf("%w: loop_interval must be positive", ErrInvalidHardware)
	}
	if c.Hardware.Chip != "" && len(c.Hardware.CoilPins) != 4 {
		return fmt.Errorf("%w: coil_pins needs 4 lines, got %d", ErrInvalidHardware, len(c.Hardware.CoilPins))
	}
	return c.Settings.Validate()
}

// Validate checks the device settings.
func (s Settings) Validate() error {
	st := s.Stepper
	switch {
	case st.Resolution <= 0:
		return fmt.Errorf("%w: resolution must be positive", ErrInvalidStepper)
	case st.OpenSpeed <= 0, st.CloseSpeed <= 0, st.HomingSpeed <= 0, st.HomingSpeedSecond <= 0:
		return fmt.Errorf("%w: speeds must be positive", ErrInvalidStepper)
	case st.Acceleration < 0:
		return fmt.Errorf("%w: acceleration must not be negative", ErrInvalidStepper)
	case st.HomingSteps <= 0:
		return fmt.Errorf("%w: homing_steps must be positive", ErrInvalidStepper)
	case st.HomingStepsMax <= st.HomingSteps:
		return fmt.Errorf("%w: homing_steps_max must exceed homing_steps", ErrInvalidStepper)
	case st.HomingFineFactor <= 1:
		return fmt.Errorf("%w: homing_fine_factor must exceed 1", ErrInvalidStepper)
	}
	if s.Calibration.OpenPosition <= 0 {
		return fmt.Errorf("%w: open_position must be positive", ErrInvalidCalibration)
	}
	return nil
}

// Normalize clamps values that have a defined range instead of rejecting them.
func (s Settings) Normalize() Settings {
	s.NightMode.StartTime = ClampDayOffset(s.NightMode.StartTime)
	s.NightMode.EndTime = ClampDayOffset(s.NightMode.EndTime)
	if s.TimeZone < -12 {
		s.TimeZone = -12
	} else if s.TimeZone > 14 {
		s.TimeZone = 14
	}
	return s
}

// ClampDayOffset clamps seconds since midnight to [0, SecondsPerDay).
func ClampDayOffset(sec int) int {
	if sec < 0 {
		return 0
	}
	if sec >= SecondsPerDay {
		return SecondsPerDay - 1
	}
	return sec
}
