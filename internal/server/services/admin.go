package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medibook/internal/server/auth"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

// CreateAdmin adds a verified admin account. Admins cannot self-register,
// so this is only reachable from the operator CLI.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password string) (*models.UserSummary, error) {
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repos.Users().Create(ctx, &models.User{
		Email:           email,
		PasswordHash:    hash,
		Role:            models.RoleAdmin,
		IsEmailVerified: true,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "admin created", "user_id", user.ID)
	summary := user.Summary()
	return &summary, nil
}
