package model

import "time"

// BookingStatus is the lifecycle state of a booking. Values are stored
// in the database and must not be renumbered.
type BookingStatus int

const (
	BookingPending   BookingStatus = 0
	BookingConfirmed BookingStatus = 1
	BookingCancelled BookingStatus = 2
)

func (s BookingStatus) String() string {
	switch s {
	case BookingPending:
		return "PENDING"
	case BookingConfirmed:
		return "CONFIRMED"
	case BookingCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Booking mirrors the `bookings` table. CheckIn and CheckOut are dates
// at UTC midnight; the stay covers the half-open range [CheckIn, CheckOut).
type Booking struct {
	ID         uint64
	UserID     uint64
	RoomID     uint64
	CheckIn    time.Time
	CheckOut   time.Time
	TotalPrice float64
	Status     BookingStatus
	CreatedAt  time.Time
}

// Nights returns the number of nights covered by the stay.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// Overlaps reports whether the stay intersects the half-open range
// [from, to): two ranges [a,b) and [c,d) overlap iff a < d && c < b.
func (b *Booking) Overlaps(from, to time.Time) bool {
	return b.CheckIn.Before(to) && from.Before(b.CheckOut)
}
