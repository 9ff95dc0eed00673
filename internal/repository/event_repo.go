package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parsyl/sqrl"

	"controlling_shade/internal/models"
)

// sqliteTimestamp is the layout of the occurred_at column.
const sqliteTimestamp = "2006-01-02 15:04:05"

// MaxListLimit caps a single history page.
const MaxListLimit = 1000

var eventColumns = []string{"id", "occurred_at", "type", "message", "meta"}

type EventSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db, now: time.Now} }

const insertEventSQL = `
		INSERT INTO shade_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`

// Append inserts an event, filling in a missing ID or timestamp.
func (r *EventSQLite) Append(ctx context.Context, e models.ShadeEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}

	var meta *string
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		s := string(b)
		meta = &s
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		e.OccurredAt.UTC().Format(sqliteTimestamp),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.EventID, err)
	}
	return nil
}

// QueryOption narrows an event select.
type QueryOption func(*sqrl.SelectBuilder)

func Since(t time.Time) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		sel.Where("occurred_at >= ?", t.UTC().Format(sqliteTimestamp))
	}
}

func Until(t time.Time) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		sel.Where("occurred_at <= ?", t.UTC().Format(sqliteTimestamp))
	}
}

func OfType(typ string) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		sel.Where("type = ?", typ)
	}
}

func Limit(n int) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		if n > 0 {
			sel.Limit(uint64(n))
		}
	}
}

// FilterOptions turns a filter into query options. Zero fields are skipped
// and the limit is capped at MaxListLimit.
func FilterOptions(f models.LogFilter) []QueryOption {
	var opts []QueryOption
	if !f.From.IsZero() {
		opts = append(opts, Since(f.From))
	}
	if !f.To.IsZero() {
		opts = append(opts, Until(f.To))
	}
	if typ := strings.ToUpper(strings.TrimSpace(f.Type)); typ != "" {
		opts = append(opts, OfType(typ))
	}
	limit := f.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	return append(opts, Limit(limit))
}

// List returns matching events, oldest first.
func (r *EventSQLite) List(ctx context.Context, f models.LogFilter) ([]models.ShadeEvent, error) {
	sel := sqrl.Select(eventColumns...).
		From("shade_events").
		OrderBy("occurred_at ASC")
	for _, o := range FilterOptions(f) {
		o(sel)
	}

	q, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build event query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]models.ShadeEvent, 0, 64)
	for rows.Next() {
		var (
			ev   models.ShadeEvent
			meta sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		if meta.Valid && meta.String != "" {
			var v any
			if err := json.Unmarshal([]byte(meta.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = meta.String
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
