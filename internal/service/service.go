package service

import (
	"context"
	"time"

	"controlling_shade/internal/config"
	"controlling_shade/internal/models"
	"controlling_shade/internal/notify"
	"controlling_shade/internal/registry"
	"controlling_shade/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Shade exposes the motion commands. Commands return once accepted or
// rejected; they do not wait for the motion to finish.
type Shade interface {
	Homing(ctx context.Context) error
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Stop(ctx context.Context) error
	MoveTo(ctx context.Context, percent float64) error
	ApplyOffset(ctx context.Context) error
	Restart(ctx context.Context) error
}

// Monitoring exposes read-only controller state.
type Monitoring interface {
	GetState(ctx context.Context) (models.ShadeState, error)
	Subscribe(name string, fn func(notify.Notification)) *notify.Subscription
}

// EventLog exposes the motion history.
type EventLog interface {
	List(ctx context.Context, f models.LogFilter) ([]models.ShadeEvent, error)
}

// Properties reads and writes device settings by wire name.
type Properties interface {
	Settings(ctx context.Context) (config.Settings, error)
	Properties(ctx context.Context) (map[string]any, error)
	SetProperty(ctx context.Context, name, value string) error
	Fields() []registry.Field
}

type Service struct {
	Shade
	Monitoring
	EventLog
	Properties
	Authorization
}

// AuthConfig carries the token settings.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

func NewService(repos *repository.Repository, dev *Device, auth AuthConfig) *Service {
	return &Service{
		Shade:         NewShadeService(dev),
		Monitoring:    NewMonitoringService(dev),
		EventLog:      NewEventLogService(repos.EventRepo),
		Properties:    NewPropertiesService(dev),
		Authorization: NewAuthService(repos.Auth, auth.SigningKey, auth.TokenTTL),
	}
}
