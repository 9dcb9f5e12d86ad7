package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	userserrors "roost/internal/users/errors"
	"roost/internal/users/validator"
	"roost/pkg/config"
	apperrors "roost/pkg/errors"
	"roost/pkg/logger"
	"roost/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	user.CreatedAt = time.Now().UTC()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, userserrors.ErrNotFound
}

func (r *fakeUserRepo) FindAll(_ context.Context) ([]*model.User, error) {
	var result []*model.User
	for _, u := range r.users {
		copied := *u
		result = append(result, &copied)
	}
	return result, nil
}

func (r *fakeUserRepo) FindSummariesByIDs(_ context.Context, ids []string) (map[string]*model.UserSummary, error) {
	result := map[string]*model.UserSummary{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			result[id] = &model.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return result, nil
}

func (r *fakeUserRepo) Update(_ context.Context, id string, user *model.User) error {
	if _, ok := r.users[id]; !ok {
		return userserrors.ErrNotFound
	}
	copied := *user
	copied.ID = id
	r.users[id] = &copied
	return nil
}

func newUserFixture() (UserService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	cfg := &config.Config{
		BcryptCost: bcrypt.MinCost,
		Log:        logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
	return NewUserService(repo, validator.NewUserValidator(cfg.Log), cfg), repo
}

func seedUser(t *testing.T, repo *fakeUserRepo, name, email string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, Password: "hashed"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func expectAppError(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected error code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}

func TestMe_ReturnsOwnRecord(t *testing.T) {
	svc, repo := newUserFixture()
	user := seedUser(t, repo, "Dana", "dana@example.com")

	got, err := svc.Me(context.Background(), model.Actor{ID: user.ID})
	if err != nil {
		t.Fatalf("Me() unexpected error: %v", err)
	}
	if got.Email != "dana@example.com" {
		t.Errorf("expected own record, got %q", got.Email)
	}
}

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	svc, repo := newUserFixture()
	user := seedUser(t, repo, "Dana", "dana@example.com")

	updated, err := svc.UpdateProfile(context.Background(), model.Actor{ID: user.ID}, &model.ProfileUpdate{
		Name: "Dana Q",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() unexpected error: %v", err)
	}
	if updated.Name != "Dana Q" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.Email != "dana@example.com" {
		t.Errorf("email should be unchanged, got %q", updated.Email)
	}
}

func TestUpdateProfile_RehashesPassword(t *testing.T) {
	svc, repo := newUserFixture()
	user := seedUser(t, repo, "Dana", "dana@example.com")

	updated, err := svc.UpdateProfile(context.Background(), model.Actor{ID: user.ID}, &model.ProfileUpdate{
		Password: "newsecret",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() unexpected error: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("newsecret")) != nil {
		t.Errorf("stored password should be a bcrypt hash of the new password")
	}
}

func TestUpdateProfile_EmailTakenByAnotherAccount(t *testing.T) {
	svc, repo := newUserFixture()
	user := seedUser(t, repo, "Dana", "dana@example.com")
	seedUser(t, repo, "Eve", "eve@example.com")

	_, err := svc.UpdateProfile(context.Background(), model.Actor{ID: user.ID}, &model.ProfileUpdate{
		Email: "eve@example.com",
	})
	expectAppError(t, err, apperrors.CodeConflict)
}

func TestList_AdminOnly(t *testing.T) {
	svc, repo := newUserFixture()
	seedUser(t, repo, "Dana", "dana@example.com")

	_, err := svc.List(context.Background(), model.Actor{ID: "user-1"})
	expectAppError(t, err, apperrors.CodeForbidden)

	users, err := svc.List(context.Background(), model.Actor{ID: "admin-1", Admin: true})
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}
