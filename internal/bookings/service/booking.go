package service

import (
	"context"
	"errors"
	bookingserrors "roost/internal/bookings/errors"
	"roost/internal/bookings/events"
	"roost/internal/bookings/repository"
	"roost/internal/bookings/validator"
	"roost/pkg/config"
	apperrors "roost/pkg/errors"
	"roost/pkg/model"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

const recentBookingsLimit = 5

// HotelCatalog is the slice of the hotel domain the booking service needs:
// existence checks on create and display summaries on reads.
type HotelCatalog interface {
	Get(ctx context.Context, id string) (*model.Hotel, error)
	Summaries(ctx context.Context, ids []string) (map[string]*model.HotelSummary, error)
}

// UserDirectory resolves user ids to display summaries.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []string) (map[string]*model.UserSummary, error)
}

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, input *model.BookingCreate) (*model.Booking, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	GetAll(ctx context.Context, actor model.Actor) ([]*model.Booking, error)
	GetForUser(ctx context.Context, actor model.Actor) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, actor model.Actor, id string, input *model.BookingStatusUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	Stats(ctx context.Context, actor model.Actor) (*model.BookingStats, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	hotels    HotelCatalog
	users     UserDirectory
	publisher events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	hotels HotelCatalog,
	users UserDirectory,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		hotels:    hotels,
		users:     users,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, input *model.BookingCreate) (*model.Booking, error) {
	if err := s.validator.ValidateCreate(input); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "user_id", actor.ID, "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	booking := &model.Booking{
		UserID:          actor.ID,
		HotelID:         input.HotelID,
		CheckIn:         input.CheckIn,
		CheckOut:        input.CheckOut,
		Guests:          input.Guests,
		RoomType:        input.RoomType,
		Price:           input.Price,
		Status:          model.StatusPending,
		SpecialRequests: input.SpecialRequests,
	}

	// The hotel existence check and the insert run in one transaction so a
	// concurrent hotel deletion cannot leave an orphaned booking behind.
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.hotels.Get(sessCtx, input.HotelID); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "user_id", actor.ID, "hotel_id", input.HotelID, "error", err)
		return nil, err
	}

	s.publisher.BookingCreated(ctx, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"user_id", actor.ID,
		"hotel_id", booking.HotelID,
		"check_in", booking.CheckIn,
	)

	if err := s.decorate(ctx, booking); err != nil {
		s.cfg.Log.Warn("Failed to attach booking summaries", "id", booking.ID, "error", err)
	}
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.UserID != actor.ID && !actor.Admin {
		return nil, apperrors.Forbidden("Not authorized to view this booking")
	}

	if err := s.decorate(ctx, booking); err != nil {
		s.cfg.Log.Warn("Failed to attach booking summaries", "id", booking.ID, "error", err)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, actor model.Actor) ([]*model.Booking, error) {
	if !actor.Admin {
		return nil, apperrors.Forbidden("Admin access required")
	}

	bookings, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	if err := s.decorateAll(ctx, bookings); err != nil {
		s.cfg.Log.Warn("Failed to attach booking summaries", "error", err)
	}
	return bookings, nil
}

func (s *bookingService) GetForUser(ctx context.Context, actor model.Actor) ([]*model.Booking, error) {
	bookings, err := s.repo.FindByUser(ctx, actor.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings for user", "user_id", actor.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	if err := s.decorateAll(ctx, bookings); err != nil {
		s.cfg.Log.Warn("Failed to attach booking summaries", "user_id", actor.ID, "error", err)
	}
	return bookings, nil
}

// UpdateStatus sets a booking to any valid status. Admin only; transitions
// are unrestricted, including reviving cancelled bookings.
func (s *bookingService) UpdateStatus(ctx context.Context, actor model.Actor, id string, input *model.BookingStatusUpdate) (*model.Booking, error) {
	if !actor.Admin {
		return nil, apperrors.Forbidden("Admin access required")
	}

	if err := s.validator.ValidateStatusUpdate(input); err != nil {
		return nil, apperrors.Validation("Invalid status update", map[string]any{"error": err.Error()})
	}
	if !model.ValidStatus(input.Status) {
		return nil, apperrors.InvalidInput("Invalid booking status: " + input.Status)
	}

	booking, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := booking.Status
	if err := s.repo.UpdateStatus(ctx, id, input.Status); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to update booking status", "id", id, "status", input.Status, "error", err)
		return nil, apperrors.Internal("Failed to update booking status", err)
	}
	booking.Status = input.Status

	s.publisher.BookingStatusChanged(ctx, booking, previous)

	s.cfg.Log.Info("Booking status updated",
		"id", id,
		"previous_status", previous,
		"status", booking.Status,
		"admin_id", actor.ID,
	)

	if err := s.decorate(ctx, booking); err != nil {
		s.cfg.Log.Warn("Failed to attach booking summaries", "id", booking.ID, "error", err)
	}
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.UserID != actor.ID && !actor.Admin {
		return nil, apperrors.Forbidden("Not authorized to cancel this booking")
	}
	if booking.Status == model.StatusCancelled {
		return nil, apperrors.InvalidInput("Booking is already cancelled")
	}
	if booking.Status == model.StatusCompleted {
		return nil, apperrors.InvalidInput("Cannot cancel a completed booking")
	}

	if err := s.repo.UpdateStatus(ctx, id, model.StatusCancelled); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}
	booking.Status = model.StatusCancelled

	s.publisher.BookingCancelled(ctx, booking)

	s.cfg.Log.Info("Booking cancelled", "id", id, "actor_id", actor.ID, "actor_role", actor.Role())

	if err := s.decorate(ctx, booking); err != nil {
		s.cfg.Log.Warn("Failed to attach booking summaries", "id", booking.ID, "error", err)
	}
	return booking, nil
}

func (s *bookingService) Stats(ctx context.Context, actor model.Actor) (*model.BookingStats, error) {
	if !actor.Admin {
		return nil, apperrors.Forbidden("Admin access required")
	}

	stats := &model.BookingStats{}
	var revenue float64
	var recent []*model.Booking
	var errTotal, errRevenue, errRecent error

	statusCounts := []struct {
		status string
		target *int64
	}{
		{model.StatusConfirmed, &stats.ConfirmedBookings},
		{model.StatusPending, &stats.PendingBookings},
		{model.StatusCancelled, &stats.CancelledBookings},
		{model.StatusCompleted, &stats.CompletedBookings},
	}
	// One error slot per goroutine so concurrent failures never share a write.
	errStatus := make([]error, len(statusCounts))

	var wg sync.WaitGroup
	wg.Add(3 + len(statusCounts))

	go func() {
		defer wg.Done()
		stats.TotalBookings, errTotal = s.repo.Count(ctx)
	}()

	for i, sc := range statusCounts {
		go func(i int, status string, target *int64) {
			defer wg.Done()
			count, err := s.repo.CountByStatus(ctx, status)
			if err != nil {
				errStatus[i] = err
				return
			}
			*target = count
		}(i, sc.status, sc.target)
	}

	go func() {
		defer wg.Done()
		revenue, errRevenue = s.repo.SumRevenue(ctx)
	}()

	go func() {
		defer wg.Done()
		recent, errRecent = s.repo.FindRecent(ctx, recentBookingsLimit)
	}()

	wg.Wait()

	for _, err := range append([]error{errTotal, errRevenue, errRecent}, errStatus...) {
		if err != nil {
			s.cfg.Log.Error("Failed to compute booking stats", "error", err)
			return nil, apperrors.Internal("Failed to compute booking statistics", err)
		}
	}

	stats.TotalRevenue = revenue
	stats.RecentBookings = recent

	if err := s.decorateAll(ctx, recent); err != nil {
		s.cfg.Log.Warn("Failed to attach booking summaries", "error", err)
	}
	return stats, nil
}

// --- Helpers ---

func (s *bookingService) findByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) decorate(ctx context.Context, booking *model.Booking) error {
	return s.decorateAll(ctx, []*model.Booking{booking})
}

// decorateAll attaches user and hotel display summaries to each booking.
// Missing references (a deleted user, for example) leave the summary nil
// rather than failing the read.
func (s *bookingService) decorateAll(ctx context.Context, bookings []*model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	userIDs := make([]string, 0, len(bookings))
	hotelIDs := make([]string, 0, len(bookings))
	seenUsers := make(map[string]bool)
	seenHotels := make(map[string]bool)
	for _, b := range bookings {
		if !seenUsers[b.UserID] {
			seenUsers[b.UserID] = true
			userIDs = append(userIDs, b.UserID)
		}
		if !seenHotels[b.HotelID] {
			seenHotels[b.HotelID] = true
			hotelIDs = append(hotelIDs, b.HotelID)
		}
	}

	users, err := s.users.Summaries(ctx, userIDs)
	if err != nil {
		return err
	}
	hotels, err := s.hotels.Summaries(ctx, hotelIDs)
	if err != nil {
		return err
	}

	for _, b := range bookings {
		b.User = users[b.UserID]
		b.Hotel = hotels[b.HotelID]
	}
	return nil
}
