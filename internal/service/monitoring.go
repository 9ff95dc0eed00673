package service

import (
	"context"

	"controlling_shade/internal/models"
	"controlling_shade/internal/notify"
)

type MonitoringService struct {
	dev *Device
}

func NewMonitoringService(dev *Device) *MonitoringService {
	return &MonitoringService{dev: dev}
}

// GetState returns a snapshot taken on the control goroutine.
func (s *MonitoringService) GetState(ctx context.Context) (models.ShadeState, error) {
	var st models.ShadeState
	err := s.dev.Do(ctx, func() error {
		st = s.dev.snapshot()
		return nil
	})
	return st, err
}

func (s *MonitoringService) Subscribe(name string, fn func(notify.Notification)) *notify.Subscription {
	return s.dev.Subscribe(name, fn)
}
