// Package service holds the business logic: the session/identity flows
// and the booking lifecycle engine. Services depend on small store
// interfaces (implemented by internal/repository) so the rules can be
// tested against in-memory fakes.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/paypal"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for any rejected token, regardless of
	// which check failed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidCode signals a TOTP code that is not currently valid.
	ErrInvalidCode = errors.New("invalid code")
	// ErrWrongPassword signals a failed current-password confirmation.
	ErrWrongPassword = errors.New("wrong password")
	// ErrWeakPassword signals a password below the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrMFAAlreadyEnabled / ErrMFANotEnabled guard MFA enrollment state.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	ErrMFANotEnabled     = errors.New("mfa is not enabled")
	// ErrForbidden signals insufficient role or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidDates signals check-in on or after check-out.
	ErrInvalidDates = errors.New("check-in date must be before check-out date")
	// ErrPastDates signals a stay starting before today.
	ErrPastDates = errors.New("cannot create a booking for dates before today")
	// ErrAlreadyCancelled signals a second cancellation attempt.
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	// ErrCancelPending rejects cancelling a booking whose payment has
	// not resolved yet.
	ErrCancelPending = errors.New("booking payment is still pending")
	// ErrStayStarted rejects cancelling a stay that already began.
	ErrStayStarted = errors.New("stay has already started")
	// ErrNotConfirmed rejects verification tokens for non-confirmed bookings.
	ErrNotConfirmed = errors.New("booking is not confirmed")
	// ErrStayNotActive rejects verification tokens outside the stay window.
	ErrStayNotActive = errors.New("stay is not currently in progress")
	// ErrInconsistent marks corrupted data (e.g. a confirmed booking
	// without a capture id). Never shown to users as-is.
	ErrInconsistent = errors.New("data inconsistency")
)

// UserStore is the subset of repository.UserRepo the services need.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	UpdateMFASecret(ctx context.Context, id uint64, secret *string) error
	Search(ctx context.Context, query string, page, pageSize int) ([]model.User, int, error)
}

// SessionStore persists login sessions and their nonces.
type SessionStore interface {
	Create(ctx context.Context, userID uint64) (model.Session, error)
	Get(ctx context.Context, id, userID uint64, nonce string) (model.Session, error)
	GetByNoncePrefix(ctx context.Context, id, userID uint64, prefix string) (model.Session, error)
	RotateNonce(ctx context.Context, id uint64) (string, error)
}

// RoomStore resolves rooms for pricing and hotel scoping.
type RoomStore interface {
	GetByID(ctx context.Context, id uint64) (model.Room, error)
}

// HotelAdminStore answers hotel-scoped authorization questions.
type HotelAdminStore interface {
	IsAdmin(ctx context.Context, hotelID, userID uint64) (bool, error)
}

// BookingStore persists bookings. Create must treat the overlap check
// and insert as one atomic unit and return repository.ErrDateConflict
// on overlap.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetForUser(ctx context.Context, id, userID uint64) (model.Booking, error)
	ListForUser(ctx context.Context, userID uint64, typ repository.BookingType, now time.Time, page, pageSize int) ([]model.Booking, int, error)
	Confirm(ctx context.Context, bookingID uint64, captureID string) (bool, error)
	Cancel(ctx context.Context, bookingID uint64) (bool, error)
	Delete(ctx context.Context, id uint64) error
	HasOverlap(ctx context.Context, roomID uint64, from, to time.Time) (bool, error)
}

// PaymentStore persists the link between a booking and its gateway order.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByBookingID(ctx context.Context, bookingID uint64) (model.Payment, error)
}

// Gateway is the payment provider; implemented by paypal.Client.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (string, error)
	Capture(ctx context.Context, orderID string) (paypal.CaptureResult, error)
	Refund(ctx context.Context, captureID string, amount float64, currency string) error
}

// Notifier publishes fire-and-forget notification events; implemented
// by queue.Publisher. Failures are logged by the implementation and
// never interrupt the request.
type Notifier interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent)
	BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent)
	PasswordResetRequested(ctx context.Context, ev queue.PasswordResetRequestedEvent)
}
