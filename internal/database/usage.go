package database

import (
	"context"

	"joke-plugin/internal/models"
)

// UsageRepository archives applied jokes for /stats. The per-session
// history never reads from it.
type UsageRepository struct {
	db *DB
}

func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Create(ctx context.Context, usage *models.JokeUsage) error {
	query := `
		INSERT INTO joke_usage (design_id, content, mode, fallback)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.Pool.QueryRow(ctx, query,
		usage.DesignID, usage.Content, string(usage.Mode), usage.Fallback,
	).Scan(&usage.ID, &usage.CreatedAt)
}

func (r *UsageRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM joke_usage").Scan(&count)
	return count, err
}

func (r *UsageRepository) CountByMode(ctx context.Context, mode models.SelectionMode) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM joke_usage WHERE mode = $1", string(mode)).Scan(&count)
	return count, err
}

func (r *UsageRepository) CountFallback(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM joke_usage WHERE fallback").Scan(&count)
	return count, err
}

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			last_interaction = CURRENT_TIMESTAMP
		RETURNING id, created_at
	`
	return r.db.Pool.QueryRow(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
