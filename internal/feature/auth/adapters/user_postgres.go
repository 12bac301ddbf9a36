// Package adapters provides the repository implementations for the auth feature.
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"updown_backend/internal/feature/auth/domain/entity"
	"updown_backend/internal/feature/auth/usecase"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// userPostgres is the Postgres implementation of the user repositories
// consumed by the auth and guess usecases. It uses GORM for database access.
type userPostgres struct {
	db *gorm.DB
}

// Compile-time check that userPostgres implements UserRepository.
var _ usecase.UserRepository = (*userPostgres)(nil)

// NewUserPostgres creates a new userPostgres instance with the given gorm.DB
// connection. Constructor for dependency injection.
func NewUserPostgres(db *gorm.DB) *userPostgres {
	return &userPostgres{db: db}
}

// Create adds a user to the database.
// It returns usecase.ErrEmailAlreadyExists when the email is taken.
func (r *userPostgres) Create(ctx context.Context, u *entity.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return usecase.ErrEmailAlreadyExists
		}
		// The sqlite driver used in tests reports duplicates through gorm.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return usecase.ErrEmailAlreadyExists
		}
		return err
	}
	return nil
}

// FindByEmail fetches a user by email.
// It returns usecase.ErrUserNotFound when the user does not exist.
func (r *userPostgres) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByID fetches a user by ID.
// It returns usecase.ErrUserNotFound when the user does not exist.
func (r *userPostgres) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	var u entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// TouchLastLogin stamps LastLoginAt with the current time.
func (r *userPostgres) TouchLastLogin(ctx context.Context, id uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", id).
		Update("last_login_at", now).Error
}

// ClaimActiveGuess stores the serialized guess on the user row, but only if
// no guess is currently active. The WHERE active_guess IS NULL condition
// makes the check-and-set a single statement, so two near-simultaneous
// submissions cannot both pass.
func (r *userPostgres) ClaimActiveGuess(ctx context.Context, id uint, guessJSON string) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ? AND active_guess IS NULL", id).
		Update("active_guess", guessJSON)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the slot is occupied or the user is gone; look to tell apart.
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return usecase.ErrGuessActive
	}
	return nil
}

// ReleaseActiveGuess clears the slot only when it still holds the given
// guess. Used to roll back a claim whose enqueue failed.
func (r *userPostgres) ReleaseActiveGuess(ctx context.Context, id uint, guessJSON string) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ? AND active_guess = ?", id, guessJSON).
		Update("active_guess", nil).Error
}

// SettleGuess applies the score delta, clears the active guess and returns
// the updated record. It returns usecase.ErrUserNotFound when the user does
// not exist.
func (r *userPostgres) SettleGuess(ctx context.Context, id uint, delta int) (*entity.User, error) {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":        gorm.Expr("score + ?", delta),
			"active_guess": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, usecase.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}
