package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"controlling_shade/internal/models"
	"controlling_shade/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var errInvalidTimeRange = errors.New("invalid time range: from must not be after to")

// normalizeToUTC keeps zero times zero.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeFilter(f models.LogFilter) (models.LogFilter, error) {
	f.From = normalizeToUTC(f.From)
	f.To = normalizeToUTC(f.To)
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return models.LogFilter{}, errInvalidTimeRange
	}
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	if f.Limit < 0 {
		f.Limit = 0
	}
	return f, nil
}

func (s *EventLogService) List(ctx context.Context, f models.LogFilter) ([]models.ShadeEvent, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, f)
}
