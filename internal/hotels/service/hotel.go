package service

import (
	"context"
	"errors"
	hotelserrors "roost/internal/hotels/errors"
	"roost/internal/hotels/repository"
	"roost/internal/hotels/validator"
	"roost/pkg/config"
	apperrors "roost/pkg/errors"
	"roost/pkg/model"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingCounter reports how many bookings reference a hotel. Deleting a
// hotel is blocked while any booking still points at it.
type BookingCounter interface {
	CountByHotel(ctx context.Context, hotelID string) (int64, error)
}

type HotelService interface {
	List(ctx context.Context, filter *model.HotelFilter) ([]*model.Hotel, error)
	Get(ctx context.Context, id string) (*model.Hotel, error)
	Summaries(ctx context.Context, ids []string) (map[string]*model.HotelSummary, error)
	Create(ctx context.Context, actor model.Actor, hotel *model.Hotel) error
	Update(ctx context.Context, actor model.Actor, id string, updates *model.HotelUpdate) (*model.Hotel, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	Stats(ctx context.Context, actor model.Actor) (*model.HotelStats, error)
}

type hotelService struct {
	repo      repository.HotelRepository
	bookings  BookingCounter
	validator *validator.HotelValidator
	cfg       *config.Config
}

func NewHotelService(
	repo repository.HotelRepository,
	bookings BookingCounter,
	validator *validator.HotelValidator,
	cfg *config.Config,
) HotelService {
	return &hotelService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *hotelService) List(ctx context.Context, filter *model.HotelFilter) ([]*model.Hotel, error) {
	hotels, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list hotels", "error", err)
		return nil, apperrors.Internal("Failed to retrieve hotels", err)
	}
	return hotels, nil
}

func (s *hotelService) Get(ctx context.Context, id string) (*model.Hotel, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Hotel ID cannot be empty")
	}

	hotel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, hotelserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Hotel", id)
		}
		if errors.Is(err, hotelserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid hotel ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve hotel", err)
	}

	return hotel, nil
}

func (s *hotelService) Summaries(ctx context.Context, ids []string) (map[string]*model.HotelSummary, error) {
	return s.repo.FindSummariesByIDs(ctx, ids)
}

func (s *hotelService) Create(ctx context.Context, actor model.Actor, hotel *model.Hotel) error {
	if !actor.Admin {
		return apperrors.Forbidden("Admin access required")
	}

	applyHotelDefaults(hotel)

	if err := s.validator.Validate(hotel); err != nil {
		s.cfg.Log.Warn("Hotel validation failed", "error", err)
		return apperrors.Validation("Hotel validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, hotel); err != nil {
		s.cfg.Log.Error("Failed to create hotel", "name", hotel.Name, "error", err)
		return apperrors.Internal("Failed to create hotel", err)
	}

	s.cfg.Log.Info("Hotel created successfully", "id", hotel.ID, "name", hotel.Name, "admin_id", actor.ID)
	return nil
}

func (s *hotelService) Update(ctx context.Context, actor model.Actor, id string, updates *model.HotelUpdate) (*model.Hotel, error) {
	if !actor.Admin {
		return nil, apperrors.Forbidden("Admin access required")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Hotel update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeHotelUpdates(existing, updates)
	if err := s.validator.Validate(merged); err != nil {
		return nil, apperrors.Validation("Hotel validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, hotelserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Hotel", id)
		}
		s.cfg.Log.Error("Failed to update hotel", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update hotel", err)
	}

	s.cfg.Log.Info("Hotel updated successfully", "id", id, "admin_id", actor.ID)
	return merged, nil
}

func (s *hotelService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.Admin {
		return apperrors.Forbidden("Admin access required")
	}
	if id == "" {
		return apperrors.InvalidInput("Hotel ID cannot be empty")
	}

	// The reference check and the delete run in one transaction so a booking
	// created concurrently cannot slip past the guard.
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		count, err := s.bookings.CountByHotel(sessCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to check hotel bookings", err)
		}
		if count > 0 {
			return apperrors.InvalidInput("Cannot delete hotel with existing bookings")
		}

		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, hotelserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Hotel", id)
			}
			if errors.Is(err, hotelserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid hotel ID format")
			}
			return apperrors.Internal("Failed to delete hotel", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Hotel deleted successfully", "id", id, "admin_id", actor.ID)
	return nil
}

func (s *hotelService) Stats(ctx context.Context, actor model.Actor) (*model.HotelStats, error) {
	if !actor.Admin {
		return nil, apperrors.Forbidden("Admin access required")
	}

	var total int64
	var priceStats *model.HotelPriceStats
	var ratingStats []model.RatingBucket
	var errTotal, errPrice, errRating error

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		total, errTotal = s.repo.Count(ctx)
	}()

	go func() {
		defer wg.Done()
		priceStats, errPrice = s.repo.PriceStats(ctx)
	}()

	go func() {
		defer wg.Done()
		ratingStats, errRating = s.repo.RatingDistribution(ctx)
	}()

	wg.Wait()

	for _, err := range []error{errTotal, errPrice, errRating} {
		if err != nil {
			s.cfg.Log.Error("Failed to compute hotel stats", "error", err)
			return nil, apperrors.Internal("Failed to compute hotel statistics", err)
		}
	}

	return &model.HotelStats{
		TotalHotels: total,
		PriceStats:  *priceStats,
		RatingStats: ratingStats,
	}, nil
}

// --- Helpers ---

const defaultRating = 4

// applyHotelDefaults fills the fields an admin may omit on create. A stored
// hotel always carries a 1-5 rating and the standard policy texts.
func applyHotelDefaults(hotel *model.Hotel) {
	if hotel.Rating == 0 {
		hotel.Rating = defaultRating
	}
	if hotel.Policies.CheckIn == "" {
		hotel.Policies.CheckIn = "2:00 PM"
	}
	if hotel.Policies.CheckOut == "" {
		hotel.Policies.CheckOut = "12:00 PM"
	}
	if hotel.Policies.Cancellation == "" {
		hotel.Policies.Cancellation = "Free cancellation up to 24 hours before check-in"
	}
	if hotel.Policies.Pets == "" {
		hotel.Policies.Pets = "Pets not allowed"
	}
	if hotel.Policies.Children == "" {
		hotel.Policies.Children = "Children of all ages are welcome"
	}
}

func (s *hotelService) mergeHotelUpdates(existing *model.Hotel, updates *model.HotelUpdate) *model.Hotel {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Location != "" {
		merged.Location = updates.Location
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Price != nil {
		merged.Price = *updates.Price
	}
	if updates.Rating != nil {
		merged.Rating = *updates.Rating
	}
	if updates.Image != "" {
		merged.Image = updates.Image
	}
	if updates.Images != nil {
		merged.Images = *updates.Images
	}
	if updates.Amenities != nil {
		merged.Amenities = *updates.Amenities
	}
	if updates.Policies != nil {
		merged.Policies = *updates.Policies
	}

	return &merged
}
