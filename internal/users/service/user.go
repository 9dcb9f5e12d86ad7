package service

import (
	"context"
	"errors"
	userserrors "roost/internal/users/errors"
	"roost/internal/users/repository"
	"roost/internal/users/validator"
	"roost/pkg/config"
	apperrors "roost/pkg/errors"
	"roost/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	Me(ctx context.Context, actor model.Actor) (*model.User, error)
	UpdateProfile(ctx context.Context, actor model.Actor, updates *model.ProfileUpdate) (*model.User, error)
	List(ctx context.Context, actor model.Actor) ([]*model.User, error)
	Summaries(ctx context.Context, ids []string) (map[string]*model.UserSummary, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *userService) Me(ctx context.Context, actor model.Actor) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFound("User")
		}
		s.cfg.Log.Error("Failed to load user profile", "user_id", actor.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve profile", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's own name, email or password. Each field
// is optional; omitted fields keep their stored value.
func (s *userService) UpdateProfile(ctx context.Context, actor model.Actor, updates *model.ProfileUpdate) (*model.User, error) {
	if err := s.validator.ValidateProfileUpdate(updates); err != nil {
		s.cfg.Log.Warn("Profile update validation failed", "user_id", actor.ID, "error", err)
		return nil, apperrors.Validation("Invalid profile input", map[string]any{"error": err.Error()})
	}

	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}

	if updates.Email != "" && updates.Email != user.Email {
		if err := s.ensureEmailAvailable(ctx, updates.Email); err != nil {
			return nil, err
		}
		user.Email = updates.Email
	}
	if updates.Name != "" {
		user.Name = updates.Name
	}
	if updates.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(updates.Password), s.cfg.BcryptCost)
		if err != nil {
			return nil, apperrors.Internal("Failed to hash password", err)
		}
		user.Password = string(hash)
	}

	if err := s.repo.Update(ctx, actor.ID, user); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFound("User")
		}
		s.cfg.Log.Error("Failed to update user profile", "user_id", actor.ID, "error", err)
		return nil, apperrors.Internal("Failed to update profile", err)
	}

	s.cfg.Log.Info("User profile updated", "user_id", actor.ID)
	return user, nil
}

func (s *userService) List(ctx context.Context, actor model.Actor) ([]*model.User, error) {
	if !actor.Admin {
		return nil, apperrors.Forbidden("Admin access required")
	}

	users, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list users", "error", err)
		return nil, apperrors.Internal("Failed to retrieve users", err)
	}
	return users, nil
}

func (s *userService) Summaries(ctx context.Context, ids []string) (map[string]*model.UserSummary, error) {
	return s.repo.FindSummariesByIDs(ctx, ids)
}

func (s *userService) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return apperrors.Conflict("Email already registered")
	}
	if !errors.Is(err, userserrors.ErrNotFound) {
		return apperrors.Internal("Failed to check email availability", err)
	}
	return nil
}
