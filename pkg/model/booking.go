package model

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	RoomStandard = "standard"
	RoomDeluxe   = "deluxe"
	RoomSuite    = "suite"
)

// ValidStatus reports whether s is one of the four booking statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Booking struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID          string    `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	HotelID         string    `json:"hotel_id" bson:"hotel_id" validate:"required,mongodb"`
	CheckIn         time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
	Guests          int       `json:"guests" bson:"guests" validate:"required,min=1"`
	RoomType        string    `json:"room_type" bson:"room_type" validate:"required,oneof=standard deluxe suite"`
	Price           float64   `json:"price" bson:"price" validate:"gte=0"`
	Status          string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	SpecialRequests string    `json:"special_requests,omitempty" bson:"special_requests,omitempty" validate:"omitempty,max=1000"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`

	// Denormalized display summaries, populated on reads, never persisted.
	User  *UserSummary  `json:"user,omitempty" bson:"-"`
	Hotel *HotelSummary `json:"hotel,omitempty" bson:"-"`
}

// BookingCreate is the input schema for creating a booking. The price is a
// client-computed snapshot (room-type multiplier x nights) and is stored
// verbatim, not recomputed from the hotel's current price.
type BookingCreate struct {
	HotelID         string    `json:"hotel" validate:"required,mongodb"`
	CheckIn         time.Time `json:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	Guests          int       `json:"guests" validate:"required,min=1"`
	RoomType        string    `json:"room_type" validate:"required,oneof=standard deluxe suite"`
	Price           float64   `json:"price" validate:"gte=0"`
	SpecialRequests string    `json:"special_requests,omitempty" validate:"omitempty,max=1000"`
}

type BookingStatusUpdate struct {
	Status string `json:"status" validate:"required"`
}

type BookingStats struct {
	TotalBookings     int64      `json:"total_bookings"`
	ConfirmedBookings int64      `json:"confirmed_bookings"`
	PendingBookings   int64      `json:"pending_bookings"`
	CancelledBookings int64      `json:"cancelled_bookings"`
	CompletedBookings int64      `json:"completed_bookings"`
	TotalRevenue      float64    `json:"total_revenue"`
	RecentBookings    []*Booking `json:"recent_bookings"`
}
