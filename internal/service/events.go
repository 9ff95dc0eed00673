package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"controlling_shade/internal/logger"
	"controlling_shade/internal/models"
	"controlling_shade/internal/motion"
	"controlling_shade/internal/repository"
)

const (
	eventQueueSize = 256
	appendTimeout  = 3 * time.Second
)

// EventWriter stores motion events in the history log from its own
// goroutine. Emit drops events when the queue is full.
type EventWriter struct {
	repo  repository.EventRepo
	clock func() time.Time
	log   *logger.Logger
	queue chan models.ShadeEvent
}

var _ motion.EventSink = (*EventWriter)(nil)

func NewEventWriter(repo repository.EventRepo, clock func() time.Time, log *logger.Logger) *EventWriter {
	if clock == nil {
		clock = time.Now
	}
	return &EventWriter{
		repo:  repo,
		clock: clock,
		log:   logger.OrNop(log),
		queue: make(chan models.ShadeEvent, eventQueueSize),
	}
}

func (w *EventWriter) Emit(e motion.Event) {
	ev := models.ShadeEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  w.clock().UTC(),
		Type:        e.Type,
		Description: e.Message,
	}
	if len(e.Metadata) > 0 {
		ev.Metadata = e.Metadata
	}
	select {
	case w.queue <- ev:
	default:
		w.log.Warnw("event_dropped", "type", e.Type)
	}
}

// Run writes queued events until ctx is canceled, then writes what is left.
func (w *EventWriter) Run(ctx context.Context) {
	for {
		select {
		case ev := <-w.queue:
			w.append(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-w.queue:
					w.append(ev)
				default:
					return
				}
			}
		}
	}
}

func (w *EventWriter) append(ev models.ShadeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := w.repo.Append(ctx, ev); err != nil {
		w.log.Errorw("event_append_failed", "type", ev.Type, "err", err)
	}
}
