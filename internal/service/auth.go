package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordovik/eshop/internal/hash"
	"github.com/ordovik/eshop/internal/models"
	"github.com/ordovik/eshop/internal/tokens"
	"github.com/ordovik/eshop/pkg/logging"
)

// AuthService owns credential verification and the access/refresh token pair.
type AuthService struct {
	DB      *gorm.DB
	Hasher  hash.Hasher
	Access  tokens.Issuer
	Refresh tokens.Issuer
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register hashes the password and persists a new user with the "user" role.
// Every failure past validation surfaces as ErrRegistrationFailed so storage
// details (duplicate email included) never reach the caller.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if name == "" || email == "" || password == "" {
		return nil, ErrValidation
	}

	pwHash, err := s.Hasher.Password(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, ErrRegistrationFailed
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		l.Error("register_error", "reason", "cannot create user", "error", err)
		return nil, ErrRegistrationFailed
	}

	l.Info("register_success", "user_id", user.ID)
	return &user, nil
}

// Login issues a token pair for valid credentials. An unknown email and a
// wrong password produce the same ErrInvalidCredentials; the hash comparison
// runs in both cases so the two failures cost the same.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("login_error", "error", err)
		return nil, ErrInternal
	}

	ok := s.Hasher.Check(user.PasswordHash, password)
	if errors.Is(err, gorm.ErrRecordNotFound) || !ok {
		l.Warn("login_failed")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		l.Error("login_error", "error", err)
		return nil, ErrInternal
	}

	l.Info("login_success", "user_id", user.ID)
	return pair, nil
}

// RefreshTokens verifies the refresh token and reissues both tokens from its
// identity claims with fresh iat/exp. The old refresh token is not tracked and
// stays verifiable until its own expiry.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.Parse(refreshToken, s.Refresh.Secret)
	if err != nil {
		l.Warn("refresh_failed", "error", err)
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		l.Warn("refresh_failed", "reason", "bad subject")
		return nil, err
	}

	pair, err := s.issuePair(userID, claims.Email, claims.Name, claims.Role)
	if err != nil {
		l.Error("refresh_error", "error", err)
		return nil, ErrInternal
	}

	l.Info("refresh_success", "user_id", userID)
	return pair, nil
}

func (s *AuthService) issuePair(userID uuid.UUID, email, name, role string) (*TokenPair, error) {
	access, err := s.Access.Sign(userID, email, name, role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Refresh.Sign(userID, email, name, role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
