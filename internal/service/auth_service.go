package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"civicwatch/internal/auth"
	apperrors "civicwatch/internal/errors"
	"civicwatch/internal/model"
	"civicwatch/internal/repository"
)

const bcryptCost = 10

// RegisterInput carries a pre-validated registration payload.
type RegisterInput struct {
	Username    string
	FullName    string
	Email       string
	Password    string
	Address     string
	PhoneNumber string
	Avatar      string
}

// AuthService owns the session lifecycle. It is the only component that
// writes the refresh-token hash field.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *model.User, err error)
	Refresh(ctx context.Context, refreshToken string) (newAccessToken, newRefreshToken string, err error)
	Logout(ctx context.Context, refreshToken string)
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	Profile(ctx context.Context, userID uint) (*model.User, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService) AuthService {
	return &authService{users: users, tokens: tokens}
}

// Register creates a new user with a freshly hashed password. It does not
// log the user in.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	existing, err := s.users.FindByEmailOrUsername(ctx, input.Email, input.Username)
	if err == nil && existing != nil {
		return nil, apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     input.Username,
		FullName:     input.FullName,
		Email:        input.Email,
		Address:      input.Address,
		PhoneNumber:  input.PhoneNumber,
		Avatar:       input.Avatar,
		Role:         model.RoleUser,
		PasswordHash: string(hashedPassword),
		MemberSince:  time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and opens a session. A lookup miss and a wrong
// password return the same error so usernames cannot be enumerated.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	user, err := s.users.FindByEmailWithSecrets(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, apperrors.ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, apperrors.ErrInvalidCredentials
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("issue refresh token: %w", err)
	}

	// Persisting the new hash invalidates every previously issued refresh
	// token for this user.
	now := time.Now().UTC()
	if err := s.users.SetRefreshTokenHash(ctx, user.ID, auth.HashRefreshToken(refreshToken), now); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token hash: %w", err)
	}
	user.LastLoginAt = &now

	return accessToken, refreshToken, user, nil
}

// Refresh exchanges a valid refresh token for a new token pair and rotates
// the stored hash, making the presented token permanently unusable.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", "", apperrors.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByIDWithSecrets(ctx, userID)
	if err != nil {
		return "", "", apperrors.ErrInvalidRefreshToken
	}

	presentedHash := auth.HashRefreshToken(refreshToken)
	if user.RefreshTokenHash == "" || !auth.HashEquals(presentedHash, user.RefreshTokenHash) {
		// A rotated-out token or a forgery.
		return "", "", apperrors.ErrInvalidRefreshToken
	}

	newAccessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}
	newRefreshToken, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh token: %w", err)
	}

	// Conditional update: a concurrent refresh that already rotated the
	// hash makes this one fail instead of silently losing the update.
	err = s.users.RotateRefreshTokenHash(ctx, user.ID, presentedHash, auth.HashRefreshToken(newRefreshToken))
	if errors.Is(err, repository.ErrStaleRefreshHash) {
		return "", "", apperrors.ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", fmt.Errorf("rotate refresh token hash: %w", err)
	}

	return newAccessToken, newRefreshToken, nil
}

// Logout revokes the refresh session when the presented token decodes;
// it is idempotent and always succeeds from the caller's perspective.
func (s *authService) Logout(ctx context.Context, refreshToken string) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return
	}
	_ = s.users.ClearRefreshTokenHash(ctx, userID)
}

// ChangePassword re-hashes the password and clears the refresh session,
// forcing re-authentication everywhere.
func (s *authService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.users.FindByIDWithSecrets(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Profile returns a user without credential material.
func (s *authService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
