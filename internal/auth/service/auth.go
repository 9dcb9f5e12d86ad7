package service

import (
	"context"
	"crypto/subtle"
	"errors"
	userserrors "roost/internal/users/errors"
	"roost/internal/users/repository"
	"roost/internal/users/validator"
	"roost/pkg/config"
	apperrors "roost/pkg/errors"
	"roost/pkg/model"
	"roost/pkg/token"

	"golang.org/x/crypto/bcrypt"
)

// AuthResult carries the signed token together with the account it belongs
// to, so handlers can return both in one response.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type AuthService interface {
	Register(ctx context.Context, input *model.RegisterInput) (*AuthResult, error)
	RegisterAdmin(ctx context.Context, input *model.AdminRegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input *model.LoginInput) (*AuthResult, error)
	AdminLogin(ctx context.Context, input *model.LoginInput) (*AuthResult, error)
}

type authService struct {
	users     repository.UserRepository
	tokens    *token.Manager
	validator *validator.UserValidator
	cfg       *config.Config
}

func NewAuthService(
	users repository.UserRepository,
	tokens *token.Manager,
	validator *validator.UserValidator,
	cfg *config.Config,
) AuthService {
	return &authService{
		users:     users,
		tokens:    tokens,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *authService) Register(ctx context.Context, input *model.RegisterInput) (*AuthResult, error) {
	if err := s.validator.ValidateRegister(input); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "error", err)
		return nil, apperrors.Validation("Invalid registration input", map[string]any{"error": err.Error()})
	}

	return s.createAccount(ctx, input.Name, input.Email, input.Password, false)
}

// RegisterAdmin requires the shared admin code. A wrong or missing code is
// rejected before the email is even checked, so the endpoint leaks nothing
// about existing accounts.
func (s *authService) RegisterAdmin(ctx context.Context, input *model.AdminRegisterInput) (*AuthResult, error) {
	if err := s.validator.ValidateAdminRegister(input); err != nil {
		s.cfg.Log.Warn("Admin registration validation failed", "error", err)
		return nil, apperrors.Validation("Invalid registration input", map[string]any{"error": err.Error()})
	}

	if s.cfg.AdminCode == "" ||
		subtle.ConstantTimeCompare([]byte(input.AdminCode), []byte(s.cfg.AdminCode)) != 1 {
		s.cfg.Log.Warn("Admin registration rejected", "email", input.Email)
		return nil, apperrors.Unauthorized("Invalid admin code")
	}

	return s.createAccount(ctx, input.Name, input.Email, input.Password, true)
}

func (s *authService) Login(ctx context.Context, input *model.LoginInput) (*AuthResult, error) {
	return s.login(ctx, input, false)
}

func (s *authService) AdminLogin(ctx context.Context, input *model.LoginInput) (*AuthResult, error) {
	return s.login(ctx, input, true)
}

func (s *authService) login(ctx context.Context, input *model.LoginInput, requireAdmin bool) (*AuthResult, error) {
	if err := s.validator.ValidateLogin(input); err != nil {
		return nil, apperrors.Validation("Invalid login input", map[string]any{"error": err.Error()})
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid email or password")
		}
		s.cfg.Log.Error("Failed to look up user for login", "error", err)
		return nil, apperrors.Internal("Failed to log in", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	if requireAdmin && !user.IsAdmin {
		s.cfg.Log.Warn("Admin login rejected for non-admin account", "user_id", user.ID)
		return nil, apperrors.Unauthorized("Not authorized as admin")
	}

	tokenStr, err := s.tokens.Sign(user.ID, user.IsAdmin)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	s.cfg.Log.Info("User logged in", "user_id", user.ID, "admin", user.IsAdmin)
	return &AuthResult{User: user, Token: tokenStr}, nil
}

func (s *authService) createAccount(ctx context.Context, name, email, password string, admin bool) (*AuthResult, error) {
	if err := s.ensureEmailAvailable(ctx, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		IsAdmin:  admin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.cfg.Log.Error("Failed to create user", "email", email, "error", err)
		return nil, apperrors.Internal("Failed to create account", err)
	}

	tokenStr, err := s.tokens.Sign(user.ID, user.IsAdmin)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	s.cfg.Log.Info("Account created", "user_id", user.ID, "admin", admin)
	return &AuthResult{User: user, Token: tokenStr}, nil
}

func (s *authService) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return apperrors.Conflict("Email already registered")
	}
	if !errors.Is(err, userserrors.ErrNotFound) {
		return apperrors.Internal("Failed to check email availability", err)
	}
	return nil
}
