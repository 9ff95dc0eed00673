package repository

import (
	"context"
	"database/sql"

	"controlling_shade/internal/config"
	"controlling_shade/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// ConfigRepo persists the runtime device settings.
type ConfigRepo interface {
	Save(ctx context.Context, s config.Settings) error
	// Load reports false when nothing has been saved yet.
	Load(ctx context.Context) (config.Settings, bool, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.ShadeEvent) error
	List(ctx context.Context, f models.LogFilter) ([]models.ShadeEvent, error)
}

type Repository struct {
	ConfigRepo ConfigRepo
	EventRepo  EventRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		ConfigRepo: NewConfigSQLite(db),
		EventRepo:  NewEventSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
