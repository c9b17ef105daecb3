package repository

import (
	"context"

	"github.com/surveyops/backend/internal/model"
)

// UserRepository reads the profile/role store. This core only consumes
// profiles; writes belong to the account system.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ListStaff returns every staff-role profile (notification fallback).
	ListStaff(ctx context.Context) ([]*model.User, error)
}
