package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roost/internal/bookings/service"
	apperrors "roost/pkg/errors"
	"roost/pkg/logger"
	"roost/pkg/middleware"
	"roost/pkg/model"
	"roost/pkg/token"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	createFn     func(ctx context.Context, actor model.Actor, input *model.BookingCreate) (*model.Booking, error)
	getByIDFn    func(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	getForUserFn func(ctx context.Context, actor model.Actor) ([]*model.Booking, error)
	cancelFn     func(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, actor model.Actor, input *model.BookingCreate) (*model.Booking, error) {
	return m.createFn(ctx, actor, input)
}

func (m *mockBookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	return m.getByIDFn(ctx, actor, id)
}

func (m *mockBookingService) GetAll(context.Context, model.Actor) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) GetForUser(ctx context.Context, actor model.Actor) ([]*model.Booking, error) {
	return m.getForUserFn(ctx, actor)
}

func (m *mockBookingService) UpdateStatus(context.Context, model.Actor, string, *model.BookingStatusUpdate) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	return m.cancelFn(ctx, actor, id)
}

func (m *mockBookingService) Stats(context.Context, model.Actor) (*model.BookingStats, error) {
	return nil, nil
}

var _ service.BookingService = (*mockBookingService)(nil)

type fakeUserSource struct {
	users map[string]*model.User
}

func (s *fakeUserSource) FindByID(_ context.Context, id string) (*model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

func withActor(r *http.Request, actor model.Actor) *http.Request {
	return r.WithContext(middleware.WithActor(r.Context(), actor))
}

func TestCreate_ReturnsCreatedEnvelope(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(_ context.Context, actor model.Actor, input *model.BookingCreate) (*model.Booking, error) {
			return &model.Booking{
				ID:      "booking-1",
				UserID:  actor.ID,
				HotelID: input.HotelID,
				Status:  model.StatusPending,
			}, nil
		},
	}
	h := NewBookingHandler(svc, nil, testLogger())

	body := `{"hotel":"665f1c2b8b3e4a0012345678","check_in":"2026-09-10T14:00:00Z","check_out":"2026-09-12T11:00:00Z","guests":2,"room_type":"deluxe","price":300}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body)), model.Actor{ID: "user-1"})
	rec := httptest.NewRecorder()

	h.Create(rec, req, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data model.Booking `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.ID != "booking-1" {
		t.Errorf("expected booking id in data envelope, got %q", resp.Data.ID)
	}
	if resp.Data.Status != model.StatusPending {
		t.Errorf("expected pending status, got %q", resp.Data.Status)
	}
}

func TestCreate_InvalidJSONRejected(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{}, nil, testLogger())

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader("{not-json")), model.Actor{ID: "user-1"})
	rec := httptest.NewRecorder()

	h.Create(rec, req, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error == "" {
		t.Errorf("expected error message in response")
	}
}

func TestCreate_UnknownFieldRejected(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{}, nil, testLogger())

	body := `{"hotel":"665f1c2b8b3e4a0012345678","check_in":"2026-09-10T14:00:00Z","check_out":"2026-09-12T11:00:00Z","guests":2,"room_type":"deluxe","price":300,"surprise":"field"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body)), model.Actor{ID: "user-1"})
	rec := httptest.NewRecorder()

	h.Create(rec, req, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown field, got %d", rec.Code)
	}
}

func TestCreate_MissingActorRejected(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader("{}"))
	rec := httptest.NewRecorder()

	h.Create(rec, req, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestGetByID_MapsServiceErrors(t *testing.T) {
	svc := &mockBookingService{
		getByIDFn: func(context.Context, model.Actor, string) (*model.Booking, error) {
			return nil, apperrors.Forbidden("Not authorized to view this booking")
		},
	}
	h := NewBookingHandler(svc, nil, testLogger())

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/bookings/id/booking-1", nil), model.Actor{ID: "user-2"})
	rec := httptest.NewRecorder()

	h.GetByID(rec, req, httprouter.Params{{Key: "id", Value: "booking-1"}})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestCancel_ReturnsUpdatedBooking(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(_ context.Context, _ model.Actor, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, Status: model.StatusCancelled}, nil
		},
	}
	h := NewBookingHandler(svc, nil, testLogger())

	req := withActor(httptest.NewRequest(http.MethodPut, "/api/bookings/id/booking-1/cancel", nil), model.Actor{ID: "user-1"})
	rec := httptest.NewRecorder()

	h.Cancel(rec, req, httprouter.Params{{Key: "id", Value: "booking-1"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Data model.Booking `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Status != model.StatusCancelled {
		t.Errorf("expected cancelled status, got %q", resp.Data.Status)
	}
}

func TestRoutes_RequireBearerToken(t *testing.T) {
	tokens := token.NewManager("test-secret", time.Hour)
	users := &fakeUserSource{users: map[string]*model.User{
		"665f1c2b8b3e4a0012345678": {ID: "665f1c2b8b3e4a0012345678", Name: "Dana", Email: "dana@example.com"},
	}}
	auth := middleware.NewAuthenticator(tokens, users, testLogger())

	svc := &mockBookingService{
		getForUserFn: func(_ context.Context, actor model.Actor) ([]*model.Booking, error) {
			return []*model.Booking{{ID: "booking-1", UserID: actor.ID}}, nil
		},
	}
	router := httprouter.New()
	NewBookingHandler(svc, auth, testLogger()).RegisterRoutes(router)

	// No token.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/user", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}

	// Valid token for a known user.
	tokenStr, err := tokens.Sign("665f1c2b8b3e4a0012345678", false)
	if err != nil {
		t.Fatalf("Sign() unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/bookings/user", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}

	// Token for a user that no longer exists.
	ghost, err := tokens.Sign("665f1c2b8b3e4a0012345699", false)
	if err != nil {
		t.Fatalf("Sign() unexpected error: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/bookings/user", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for unknown user, got %d", rec.Code)
	}
}
