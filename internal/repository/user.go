package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// UserRepository serves account rows. Account creation and authentication
// happen upstream; this repository only reads and updates profiles.
type UserRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: logger,
	}
}

const userColumns = `id, email, full_name, age, gender, weight, is_active, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Age,
		&u.Gender,
		&u.Weight,
		&u.IsActive,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"user_id": id,
			"error":   err,
		}).Error("Failed to get user by ID")
		return nil, fmt.Errorf("getting user by ID: %w", err)
	}

	return u, nil
}

// UpdateProfile applies a partial profile update and returns the updated
// row. Nil fields keep their current values.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, p *domain.PartialProfile) (*domain.User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
			age = COALESCE($3, age),
			gender = COALESCE($4, gender),
			weight = COALESCE($5, weight),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, id, p.FullName, p.Age, p.Gender, p.Weight))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"user_id": id,
			"error":   err,
		}).Error("Failed to update user profile")
		return nil, fmt.Errorf("updating user profile: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"user_id": id,
	}).Info("User profile updated")

	return u, nil
}

// ListNonAdmins retrieves every active non-admin user, oldest account
// first. Used by the admin listing and the broadcast generator.
func (r *UserRepository) ListNonAdmins(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_admin = FALSE AND is_active = TRUE
		ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list users")
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// CountAll returns the total number of users.
func (r *UserRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}
