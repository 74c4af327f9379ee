package model

import "time"

// Payment mirrors the `payments` table; exactly one row per booking.
// OrderID is assigned when the gateway order is opened alongside the
// booking. CaptureID stays nil until the gateway reports the capture as
// completed; a CONFIRMED booking without one indicates corrupted data.
type Payment struct {
	ID        uint64
	BookingID uint64
	OrderID   string
	CaptureID *string
	CreatedAt time.Time
}
