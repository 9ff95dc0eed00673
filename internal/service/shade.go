package service

import "context"

type ShadeService struct {
	dev *Device
}

func NewShadeService(dev *Device) *ShadeService { return &ShadeService{dev: dev} }

// Homing starts the homing procedure. A request outside StandBy fails at once.
func (s *ShadeService) Homing(ctx context.Context) error {
	return s.dev.Do(ctx, s.dev.homing)
}

func (s *ShadeService) Open(ctx context.Context) error {
	return s.dev.Do(ctx, s.dev.ctrl.Open)
}

func (s *ShadeService) Close(ctx context.Context) error {
	return s.dev.Do(ctx, s.dev.ctrl.Close)
}

// Stop is the emergency stop. It always succeeds while the loop runs.
func (s *ShadeService) Stop(ctx context.Context) error {
	return s.dev.Do(ctx, func() error {
		s.dev.ctrl.EmergencyStop()
		return nil
	})
}

// MoveTo takes the percentage as shown to users.
func (s *ShadeService) MoveTo(ctx context.Context, percent float64) error {
	return s.dev.Do(ctx, func() error { return s.dev.moveTo(percent) })
}

func (s *ShadeService) ApplyOffset(ctx context.Context) error {
	return s.dev.Do(ctx, s.dev.ctrl.ApplyOffset)
}

func (s *ShadeService) Restart(ctx context.Context) error {
	return s.dev.Do(ctx, s.dev.scheduleRestart)
}
