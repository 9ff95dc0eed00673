package service

import (
	"context"
	"time"

	"controlling_shade/internal/config"
	"controlling_shade/internal/logger"
	"controlling_shade/internal/repository"
)

// SaveInterval is how long settings changes are collected before one write.
const SaveInterval = 60 * time.Second

const saveTimeout = 5 * time.Second

// Saver batches settings writes. The newest settings win; a pending write is
// flushed when Run stops.
type Saver struct {
	repo  repository.ConfigRepo
	delay time.Duration
	log   *logger.Logger
	in    chan config.Settings
}

func NewSaver(repo repository.ConfigRepo, delay time.Duration, log *logger.Logger) *Saver {
	if delay <= 0 {
		delay = SaveInterval
	}
	return &Saver{repo: repo, delay: delay, log: logger.OrNop(log), in: make(chan config.Settings, 1)}
}

// Schedule never blocks. A value still waiting in the queue is replaced.
func (s *Saver) Schedule(v config.Settings) {
	for {
		select {
		case s.in <- v:
			return
		default:
		}
		select {
		case <-s.in:
		default:
		}
	}
}

func (s *Saver) Run(ctx context.Context) {
	var (
		pending *config.Settings
		timer   *time.Timer
		fire    <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			select {
			case v := <-s.in:
				pending = &v
			default:
			}
			if pending != nil {
				s.save(*pending)
			}
			return
		case v := <-s.in:
			pending = &v
			if timer == nil {
				timer = time.NewTimer(s.delay)
				fire = timer.C
			}
		case <-fire:
			timer, fire = nil, nil
			if pending != nil {
				s.save(*pending)
				pending = nil
			}
		}
	}
}

func (s *Saver) save(v config.Settings) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, v); err != nil {
		s.log.Errorw("settings_save_failed", "err", err)
		return
	}
	s.log.Infow("settings_saved")
}
