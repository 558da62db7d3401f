package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"civicwatch/internal/model"
)

// ErrStaleRefreshHash is returned when a conditional rotation matched no row:
// the presented token was already rotated out or a concurrent refresh won.
var ErrStaleRefreshHash = errors.New("stored refresh token hash does not match")

// publicUserColumns is the default selection; credential material is only
// loaded by the *WithSecrets variants.
var publicUserColumns = []string{
	"id", "username", "full_name", "email", "address", "phone_number",
	"avatar", "role", "member_since", "last_login_at", "created_at", "updated_at",
}

// UserRepository defines credential-store persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByIDWithSecrets(ctx context.Context, id uint) (*model.User, error)
	FindByEmailWithSecrets(ctx context.Context, email string) (*model.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	SetRefreshTokenHash(ctx context.Context, id uint, hash string, lastLogin time.Time) error
	RotateRefreshTokenHash(ctx context.Context, id uint, oldHash, newHash string) error
	ClearRefreshTokenHash(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select(publicUserColumns).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDWithSecrets(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmailWithSecrets(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select(publicUserColumns).
		Where("email = ? OR username = ?", email, username).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SetRefreshTokenHash(ctx context.Context, id uint, hash string, lastLogin time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refresh_token_hash": hash,
			"last_login_at":      lastLogin,
		}).Error
}

// RotateRefreshTokenHash replaces the stored hash only if it still equals
// oldHash. The single conditional UPDATE is the serialization point for
// concurrent refreshes: the loser of a race matches zero rows.
func (r *userRepository) RotateRefreshTokenHash(ctx context.Context, id uint, oldHash, newHash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND refresh_token_hash = ?", id, oldHash).
		Update("refresh_token_hash", newHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRefreshHash
	}
	return nil
}

func (r *userRepository) ClearRefreshTokenHash(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("refresh_token_hash", "").Error
}

// UpdatePassword stores a new password hash and revokes the refresh session
// in the same statement, forcing re-authentication everywhere.
func (r *userRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash":      passwordHash,
			"refresh_token_hash": "",
		}).Error
}
