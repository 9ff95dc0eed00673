package service

import (
	"context"

	"controlling_shade/internal/config"
	"controlling_shade/internal/registry"
)

type PropertiesService struct {
	dev *Device
}

func NewPropertiesService(dev *Device) *PropertiesService { return &PropertiesService{dev: dev} }

func (s *PropertiesService) Settings(ctx context.Context) (config.Settings, error) {
	var out config.Settings
	err := s.dev.Do(ctx, func() error {
		out = s.dev.settings
		return nil
	})
	return out, err
}

// Properties returns every field by wire name.
func (s *PropertiesService) Properties(ctx context.Context) (map[string]any, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return registry.Values(st), nil
}

// SetProperty writes one field, or starts a move for position_target.
func (s *PropertiesService) SetProperty(ctx context.Context, name, value string) error {
	return s.dev.Do(ctx, func() error { return s.dev.setProperty(name, value) })
}

func (s *PropertiesService) Fields() []registry.Field { return registry.All() }
