package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/utils"
)

// EnsureAdmin creates the bootstrap admin account if email is set and no such user exists yet.
func EnsureAdmin(ctx context.Context, repo UserStore, email, password string, logger *zap.Logger) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := repo.Create(ctx, email, hash, "Administrator", models.RoleAdmin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
