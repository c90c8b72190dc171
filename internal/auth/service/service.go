package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadcrm_backend/internal/auth/password"
	"leadcrm_backend/internal/auth/repository"
	"leadcrm_backend/internal/auth/token"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const msgInvalidCredentials = "invalid credentials"

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        repository.User
}

type Service struct {
	repo   repository.AuthRepository
	issuer *token.Issuer
	log    *logger.Logger
}

func New(repo repository.AuthRepository, issuer *token.Issuer, log *logger.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, log: log}
}

// SignIn checks credentials and issues an access token. Unknown emails,
// wrong passwords and deactivated users all fail the same way.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return Session{}, fmt.Errorf("load user: %w", err)
		}
		s.log.AuthEvent("sign_in", email, false, "unknown email")
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "password mismatch")
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "user inactive")
		return Session{}, apperr.Unauthorized("account is deactivated")
	}

	accessToken, expiresAt, err := s.issuer.Issue(user.ID, user.Role, user.CompanyID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.AuthEvent("sign_in", email, true, "")
	return Session{AccessToken: accessToken, ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return user, err
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return err
	}
	if err := password.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperr.Validation("current password is incorrect")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.AuthEvent("password_changed", user.Email, true, "")
	return nil
}
