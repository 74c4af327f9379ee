// Package queue publishes and consumes notification events over
// RabbitMQ. Publishing is fire-and-forget: a broker outage is logged
// and never fails the request that triggered the event.
package queue

import "time"

const (
	BookingConfirmedQueue       = "booking.confirmed"
	BookingCancelledQueue       = "booking.cancelled"
	PasswordResetRequestedQueue = "password.reset.requested"
)

// BookingConfirmedEvent is emitted once per booking, when the payment
// capture succeeds.
type BookingConfirmedEvent struct {
	BookingID  uint64    `json:"booking_id"`
	UserID     uint64    `json:"user_id"`
	RoomID     uint64    `json:"room_id"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	TotalPrice float64   `json:"total_price"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is emitted after a successful refund.
type BookingCancelledEvent struct {
	BookingID    uint64    `json:"booking_id"`
	UserID       uint64    `json:"user_id"`
	RoomID       uint64    `json:"room_id"`
	RefundAmount float64   `json:"refund_amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// PasswordResetRequestedEvent carries the reset token to the mail
// worker. The token is single-purpose and short-lived.
type PasswordResetRequestedEvent struct {
	UserID     uint64    `json:"user_id"`
	Email      string    `json:"email"`
	Token      string    `json:"token"`
	OccurredAt time.Time `json:"occurred_at"`
}
