package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	bookingserrors "roost/internal/bookings/errors"
	"roost/internal/bookings/events"
	"roost/internal/bookings/validator"
	"roost/pkg/config"
	mongotx "roost/pkg/db/mongo"
	apperrors "roost/pkg/errors"
	"roost/pkg/logger"
	"roost/pkg/model"
)

// --- Fakes ---

type fakeBookingRepo struct {
	bookings map[string]*model.Booking
	nextID   int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*model.Booking{}}
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.nextID++
	booking.ID = fmt.Sprintf("booking-%d", r.nextID)
	booking.CreatedAt = time.Now().UTC()
	copied := *booking
	r.bookings[booking.ID] = &copied
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	booking, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

func (r *fakeBookingRepo) FindAll(_ context.Context) ([]*model.Booking, error) {
	var result []*model.Booking
	for _, b := range r.bookings {
		copied := *b
		result = append(result, &copied)
	}
	return result, nil
}

func (r *fakeBookingRepo) FindByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	var result []*model.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			copied := *b
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeBookingRepo) FindRecent(_ context.Context, limit int) ([]*model.Booking, error) {
	all, _ := r.FindAll(context.Background())
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id string, status string) error {
	booking, ok := r.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	booking.Status = status
	return nil
}

func (r *fakeBookingRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.bookings)), nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context, status string) (int64, error) {
	var count int64
	for _, b := range r.bookings {
		if b.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) CountByHotel(_ context.Context, hotelID string) (int64, error) {
	var count int64
	for _, b := range r.bookings {
		if b.HotelID == hotelID {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) SumRevenue(_ context.Context) (float64, error) {
	var total float64
	for _, b := range r.bookings {
		if b.Status == model.StatusConfirmed || b.Status == model.StatusCompleted {
			total += b.Price
		}
	}
	return total, nil
}

func (r *fakeBookingRepo) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type fakeHotelCatalog struct {
	hotels map[string]*model.Hotel
}

func (c *fakeHotelCatalog) Get(_ context.Context, id string) (*model.Hotel, error) {
	hotel, ok := c.hotels[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("Hotel", id)
	}
	return hotel, nil
}

func (c *fakeHotelCatalog) Summaries(_ context.Context, ids []string) (map[string]*model.HotelSummary, error) {
	result := map[string]*model.HotelSummary{}
	for _, id := range ids {
		if hotel, ok := c.hotels[id]; ok {
			result[id] = &model.HotelSummary{
				ID:       hotel.ID,
				Name:     hotel.Name,
				Location: hotel.Location,
				Image:    hotel.Image,
				Rating:   hotel.Rating,
			}
		}
	}
	return result, nil
}

type fakeUserDirectory struct {
	users map[string]*model.UserSummary
}

func (d *fakeUserDirectory) Summaries(_ context.Context, ids []string) (map[string]*model.UserSummary, error) {
	result := map[string]*model.UserSummary{}
	for _, id := range ids {
		if user, ok := d.users[id]; ok {
			result[id] = user
		}
	}
	return result, nil
}

type recordingPublisher struct {
	created       []string
	statusChanged []string
	cancelled     []string
}

func (p *recordingPublisher) BookingCreated(_ context.Context, b *model.Booking) {
	p.created = append(p.created, b.ID)
}

func (p *recordingPublisher) BookingStatusChanged(_ context.Context, b *model.Booking, _ string) {
	p.statusChanged = append(p.statusChanged, b.ID)
}

func (p *recordingPublisher) BookingCancelled(_ context.Context, b *model.Booking) {
	p.cancelled = append(p.cancelled, b.ID)
}

var _ events.Publisher = (*recordingPublisher)(nil)

// --- Fixtures ---

func newTestConfig() *config.Config {
	return &config.Config{
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		Log:          logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
}

type serviceFixture struct {
	svc       BookingService
	repo      *fakeBookingRepo
	catalog   *fakeHotelCatalog
	publisher *recordingPublisher
}

func newServiceFixture() *serviceFixture {
	repo := newFakeBookingRepo()
	catalog := &fakeHotelCatalog{hotels: map[string]*model.Hotel{
		"hotel-1": {ID: "hotel-1", Name: "Seaview", Location: "Lisbon", Image: "https://example.com/h1.jpg", Rating: 4.5},
	}}
	directory := &fakeUserDirectory{users: map[string]*model.UserSummary{
		"user-1":  {ID: "user-1", Name: "Dana", Email: "dana@example.com"},
		"admin-1": {ID: "admin-1", Name: "Admin", Email: "admin@example.com"},
	}}
	publisher := &recordingPublisher{}
	cfg := newTestConfig()

	return &serviceFixture{
		svc:       NewBookingService(repo, catalog, directory, publisher, validator.NewBookingValidator(cfg.Log), cfg),
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
	}
}

var (
	owner = model.Actor{ID: "user-1"}
	other = model.Actor{ID: "user-2"}
	admin = model.Actor{ID: "admin-1", Admin: true}
)

func validCreateInput() *model.BookingCreate {
	checkIn := time.Now().Add(24 * time.Hour)
	return &model.BookingCreate{
		HotelID:  "hotel-1",
		CheckIn:  checkIn,
		CheckOut: checkIn.Add(48 * time.Hour),
		Guests:   2,
		RoomType: model.RoomDeluxe,
		Price:    300,
	}
}

func mustCreate(t *testing.T, f *serviceFixture, actor model.Actor) *model.Booking {
	t.Helper()
	booking, err := f.svc.Create(context.Background(), actor, validCreateInput())
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	return booking
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

// --- Tests ---

func TestCreate_StartsPendingWithOwner(t *testing.T) {
	f := newServiceFixture()

	booking := mustCreate(t, f, owner)

	if booking.Status != model.StatusPending {
		t.Errorf("expected status %q, got %q", model.StatusPending, booking.Status)
	}
	if booking.UserID != owner.ID {
		t.Errorf("expected owner %q, got %q", owner.ID, booking.UserID)
	}
	if booking.Price != 300 {
		t.Errorf("expected price snapshot 300, got %v", booking.Price)
	}
	if booking.Hotel == nil || booking.Hotel.Name != "Seaview" {
		t.Errorf("expected hotel summary to be attached, got %+v", booking.Hotel)
	}
	if len(f.publisher.created) != 1 {
		t.Errorf("expected 1 created event, got %d", len(f.publisher.created))
	}
}

func TestCreate_UnknownHotelPersistsNothing(t *testing.T) {
	f := newServiceFixture()

	input := validCreateInput()
	input.HotelID = "hotel-missing"

	_, err := f.svc.Create(context.Background(), owner, input)
	expectAppError(t, err, apperrors.CodeNotFound)

	if len(f.repo.bookings) != 0 {
		t.Errorf("expected no bookings persisted, got %d", len(f.repo.bookings))
	}
	if len(f.publisher.created) != 0 {
		t.Errorf("expected no events published, got %d", len(f.publisher.created))
	}
}

func TestCreate_CheckOutBeforeCheckInRejected(t *testing.T) {
	f := newServiceFixture()

	input := validCreateInput()
	input.CheckOut = input.CheckIn.Add(-time.Hour)

	_, err := f.svc.Create(context.Background(), owner, input)
	expectAppError(t, err, apperrors.CodeValidation)
}

func TestGetByID_OwnerAndAdminOnly(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	if _, err := f.svc.GetByID(context.Background(), owner, booking.ID); err != nil {
		t.Errorf("owner should read own booking, got: %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), admin, booking.ID); err != nil {
		t.Errorf("admin should read any booking, got: %v", err)
	}

	_, err := f.svc.GetByID(context.Background(), other, booking.ID)
	expectAppError(t, err, apperrors.CodeForbidden)
}

func TestGetByID_NotFound(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.GetByID(context.Background(), admin, "booking-999")
	expectAppError(t, err, apperrors.CodeNotFound)
}

func TestGetAll_AdminOnly(t *testing.T) {
	f := newServiceFixture()
	mustCreate(t, f, owner)

	_, err := f.svc.GetAll(context.Background(), owner)
	expectAppError(t, err, apperrors.CodeForbidden)

	bookings, err := f.svc.GetAll(context.Background(), admin)
	if err != nil {
		t.Fatalf("GetAll() unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Errorf("expected 1 booking, got %d", len(bookings))
	}
}

func TestCancel_OwnerCancelsOwnBooking(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	cancelled, err := f.svc.Cancel(context.Background(), owner, booking.ID)
	if err != nil {
		t.Fatalf("Cancel() unexpected error: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Errorf("expected status %q, got %q", model.StatusCancelled, cancelled.Status)
	}
	if len(f.publisher.cancelled) != 1 {
		t.Errorf("expected 1 cancelled event, got %d", len(f.publisher.cancelled))
	}
}

func TestCancel_NonOwnerForbidden(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	_, err := f.svc.Cancel(context.Background(), other, booking.ID)
	expectAppError(t, err, apperrors.CodeForbidden)

	stored, _ := f.repo.FindByID(context.Background(), booking.ID)
	if stored.Status != model.StatusPending {
		t.Errorf("booking should be untouched, got status %q", stored.Status)
	}
}

func TestCancel_AlreadyCancelledRejected(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	if _, err := f.svc.Cancel(context.Background(), owner, booking.ID); err != nil {
		t.Fatalf("first Cancel() unexpected error: %v", err)
	}

	_, err := f.svc.Cancel(context.Background(), owner, booking.ID)
	expectAppError(t, err, apperrors.CodeInvalidInput)
}

func TestCancel_CompletedRejected(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)
	if _, err := f.svc.UpdateStatus(context.Background(), admin, booking.ID,
		&model.BookingStatusUpdate{Status: model.StatusCompleted}); err != nil {
		t.Fatalf("UpdateStatus() unexpected error: %v", err)
	}

	_, err := f.svc.Cancel(context.Background(), owner, booking.ID)
	expectAppError(t, err, apperrors.CodeInvalidInput)
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	_, err := f.svc.UpdateStatus(context.Background(), owner, booking.ID,
		&model.BookingStatusUpdate{Status: model.StatusConfirmed})
	expectAppError(t, err, apperrors.CodeForbidden)
}

func TestUpdateStatus_InvalidStatusLeavesBookingUnchanged(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	_, err := f.svc.UpdateStatus(context.Background(), admin, booking.ID,
		&model.BookingStatusUpdate{Status: "archived"})
	expectAppError(t, err, apperrors.CodeInvalidInput)

	stored, _ := f.repo.FindByID(context.Background(), booking.ID)
	if stored.Status != model.StatusPending {
		t.Errorf("booking should keep status %q, got %q", model.StatusPending, stored.Status)
	}
}

func TestUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	// Admin overrides are unrestricted, including reviving a cancelled booking.
	for _, status := range []string{model.StatusCancelled, model.StatusConfirmed, model.StatusCompleted} {
		updated, err := f.svc.UpdateStatus(context.Background(), admin, booking.ID,
			&model.BookingStatusUpdate{Status: status})
		if err != nil {
			t.Fatalf("UpdateStatus(%s) unexpected error: %v", status, err)
		}
		if updated.Status != status {
			t.Errorf("expected status %q, got %q", status, updated.Status)
		}
	}
	if len(f.publisher.statusChanged) != 3 {
		t.Errorf("expected 3 status events, got %d", len(f.publisher.statusChanged))
	}
}

func TestGetForUser_ReturnsCancelledBookings(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)
	mustCreate(t, f, model.Actor{ID: "user-3"})

	if _, err := f.svc.Cancel(context.Background(), owner, booking.ID); err != nil {
		t.Fatalf("Cancel() unexpected error: %v", err)
	}

	bookings, err := f.svc.GetForUser(context.Background(), owner)
	if err != nil {
		t.Fatalf("GetForUser() unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking for user, got %d", len(bookings))
	}
	if bookings[0].Status != model.StatusCancelled {
		t.Errorf("expected cancelled booking in listing, got %q", bookings[0].Status)
	}
}

func TestStats_AdminOnly(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Stats(context.Background(), owner)
	expectAppError(t, err, apperrors.CodeForbidden)
}

func TestStats_RevenueExcludesCancelled(t *testing.T) {
	f := newServiceFixture()
	booking := mustCreate(t, f, owner)

	if _, err := f.svc.UpdateStatus(context.Background(), admin, booking.ID,
		&model.BookingStatusUpdate{Status: model.StatusConfirmed}); err != nil {
		t.Fatalf("UpdateStatus() unexpected error: %v", err)
	}

	stats, err := f.svc.Stats(context.Background(), admin)
	if err != nil {
		t.Fatalf("Stats() unexpected error: %v", err)
	}
	if stats.TotalRevenue != 300 {
		t.Errorf("expected revenue 300 after confirm, got %v", stats.TotalRevenue)
	}

	if _, err := f.svc.Cancel(context.Background(), admin, booking.ID); err != nil {
		t.Fatalf("Cancel() unexpected error: %v", err)
	}

	stats, err = f.svc.Stats(context.Background(), admin)
	if err != nil {
		t.Fatalf("Stats() unexpected error: %v", err)
	}
	if stats.TotalRevenue != 0 {
		t.Errorf("expected revenue 0 after cancel, got %v", stats.TotalRevenue)
	}
	if stats.TotalBookings != 1 {
		t.Errorf("expected 1 total booking, got %d", stats.TotalBookings)
	}
	if stats.CancelledBookings != 1 {
		t.Errorf("expected 1 cancelled booking, got %d", stats.CancelledBookings)
	}
	if stats.ConfirmedBookings != 0 {
		t.Errorf("expected 0 confirmed bookings, got %d", stats.ConfirmedBookings)
	}
}

// failingStatusRepo makes every per-status count fail so all the counting
// goroutines report errors at the same time.
type failingStatusRepo struct {
	*fakeBookingRepo
}

func (r *failingStatusRepo) CountByStatus(context.Context, string) (int64, error) {
	return 0, fmt.Errorf("aggregation failed")
}

func TestStats_AllStatusCountsFailing(t *testing.T) {
	repo := &failingStatusRepo{fakeBookingRepo: newFakeBookingRepo()}
	cfg := newTestConfig()
	svc := NewBookingService(repo, &fakeHotelCatalog{}, &fakeUserDirectory{}, &recordingPublisher{}, validator.NewBookingValidator(cfg.Log), cfg)

	for i := 0; i < 20; i++ {
		_, err := svc.Stats(context.Background(), admin)
		expectAppError(t, err, apperrors.CodeInternal)
	}
}

func TestStats_RecentBookingsLimited(t *testing.T) {
	f := newServiceFixture()
	for i := 0; i < 7; i++ {
		mustCreate(t, f, owner)
	}

	stats, err := f.svc.Stats(context.Background(), admin)
	if err != nil {
		t.Fatalf("Stats() unexpected error: %v", err)
	}
	if len(stats.RecentBookings) != recentBookingsLimit {
		t.Errorf("expected %d recent bookings, got %d", recentBookingsLimit, len(stats.RecentBookings))
	}
	if stats.PendingBookings != 7 {
		t.Errorf("expected 7 pending bookings, got %d", stats.PendingBookings)
	}
}
