package events

import (
	"context"
	"roost/pkg/kafka"
	"roost/pkg/logger"
	"roost/pkg/model"
	"time"
)

const (
	TopicBookingLifecycle = "booking.lifecycle"
	TopicBookingDLQ       = "booking.lifecycle.dlq"

	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingCancelled     = "booking.cancelled"

	sourceService = "roost-api"
)

// Publisher emits booking lifecycle events. Publishing is best-effort: a
// failed publish is logged and never fails the originating request.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingStatusChanged(ctx context.Context, booking *model.Booking, previous string)
	BookingCancelled(ctx context.Context, booking *model.Booking)
}

type bookingEvent struct {
	BookingID      string    `json:"booking_id"`
	UserID         string    `json:"user_id"`
	HotelID        string    `json:"hotel_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Price          float64   `json:"price"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, EventBookingCreated, booking, "")
}

func (p *kafkaPublisher) BookingStatusChanged(ctx context.Context, booking *model.Booking, previous string) {
	p.publish(ctx, EventBookingStatusChanged, booking, previous)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, EventBookingCancelled, booking, "")
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking, previous string) {
	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(bookingEvent{
			BookingID:      booking.ID,
			UserID:         booking.UserID,
			HotelID:        booking.HotelID,
			Status:         booking.Status,
			PreviousStatus: previous,
			Price:          booking.Price,
			OccurredAt:     time.Now().UTC(),
		}).
		WithEventType(eventType).
		WithSource(sourceService).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
		return
	}

	p.log.Debug("Booking event published",
		"event_type", eventType,
		"booking_id", booking.ID,
	)
}

// NopPublisher discards all events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) BookingCreated(context.Context, *model.Booking)                {}
func (NopPublisher) BookingStatusChanged(context.Context, *model.Booking, string) {}
func (NopPublisher) BookingCancelled(context.Context, *model.Booking)             {}
