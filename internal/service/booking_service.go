package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/paypal"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/token"
)

// BookingConfig carries the knobs of the booking service.
type BookingConfig struct {
	Secret          []byte
	Currency        string
	VerificationTTL time.Duration // booking verification token lifetime
	Debug           bool          // debug builds may book past dates
}

// BookingService drives the booking lifecycle: creation with conflict
// detection, lazy payment capture, cancellation with refund, and
// check-in verification tokens.
type BookingService struct {
	bookings BookingStore
	payments PaymentStore
	rooms    RoomStore
	gateway  Gateway
	access   *AccessChecker
	notifier Notifier
	cfg      BookingConfig
	now      func() time.Time
}

func NewBookingService(bookings BookingStore, payments PaymentStore, rooms RoomStore,
	gateway Gateway, access *AccessChecker, notifier Notifier, cfg BookingConfig) *BookingService {
	return &BookingService{
		bookings: bookings,
		payments: payments,
		rooms:    rooms,
		gateway:  gateway,
		access:   access,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// BookingDetail pairs a booking with its payment, when one exists.
type BookingDetail struct {
	Booking model.Booking
	Payment *model.Payment
}

// dateOnly truncates t to a UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *BookingService) today() time.Time { return dateOnly(s.now()) }

// Book creates a PENDING booking and opens a payment order for the full
// stay price. Dates are calendar dates; the range is half-open, so
// check-out day is free for the next guest.
func (s *BookingService) Book(ctx context.Context, userID, roomID uint64, checkIn, checkOut time.Time) (BookingDetail, error) {
	checkIn, checkOut = dateOnly(checkIn), dateOnly(checkOut)
	if !checkIn.Before(checkOut) {
		return BookingDetail{}, ErrInvalidDates
	}
	if checkIn.Before(s.today()) && !s.cfg.Debug {
		return BookingDetail{}, ErrPastDates
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return BookingDetail{}, err
	}

	b := model.Booking{
		UserID:   userID,
		RoomID:   roomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Status:   model.BookingPending,
	}
	b.TotalPrice = room.Price * float64(b.Nights())
	if err := s.bookings.Create(ctx, &b); err != nil {
		return BookingDetail{}, err
	}

	orderID, err := s.gateway.CreateOrder(ctx, b.TotalPrice, s.cfg.Currency)
	if err != nil {
		// A PENDING booking without a payment order can neither advance
		// nor be cancelled; remove it so the failed attempt does not
		// keep holding the room.
		if derr := s.bookings.Delete(ctx, b.ID); derr != nil {
			log.Printf("booking %d: rollback after failed order open: %v", b.ID, derr)
		}
		return BookingDetail{}, err
	}
	p := model.Payment{BookingID: b.ID, OrderID: orderID}
	if err := s.payments.Create(ctx, &p); err != nil {
		if derr := s.bookings.Delete(ctx, b.ID); derr != nil {
			log.Printf("booking %d: rollback after failed payment insert: %v", b.ID, derr)
		}
		return BookingDetail{}, err
	}
	return BookingDetail{Booking: b, Payment: &p}, nil
}

// Get returns the user's booking and advances it lazily: when the
// booking is still PENDING, the gateway is asked whether the order has
// been paid, and a completed capture flips the booking to CONFIRMED.
// Concurrent calls race on a conditional update, so exactly one of them
// records the capture and emits the confirmation event.
func (s *BookingService) Get(ctx context.Context, userID, bookingID uint64) (BookingDetail, error) {
	b, err := s.bookings.GetForUser(ctx, bookingID, userID)
	if err != nil {
		return BookingDetail{}, err
	}
	return s.advance(ctx, b)
}

func (s *BookingService) advance(ctx context.Context, b model.Booking) (BookingDetail, error) {
	d := BookingDetail{Booking: b}
	p, err := s.payments.GetByBookingID(ctx, b.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return d, nil
		}
		return BookingDetail{}, err
	}
	d.Payment = &p

	if b.Status != model.BookingPending || p.CaptureID != nil {
		return d, nil
	}

	res, err := s.gateway.Capture(ctx, p.OrderID)
	if err != nil {
		// Gateway trouble leaves the booking pending; the next read
		// retries.
		log.Printf("booking %d: capture check failed: %v", b.ID, err)
		return d, nil
	}
	if res.Status != paypal.CaptureCompleted {
		return d, nil
	}

	won, err := s.bookings.Confirm(ctx, b.ID, res.CaptureID)
	if err != nil {
		return BookingDetail{}, err
	}
	d.Booking.Status = model.BookingConfirmed
	captureID := res.CaptureID
	d.Payment.CaptureID = &captureID
	if won && s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, queue.BookingConfirmedEvent{
			BookingID:  b.ID,
			UserID:     b.UserID,
			RoomID:     b.RoomID,
			CheckIn:    b.CheckIn.Format("2006-01-02"),
			CheckOut:   b.CheckOut.Format("2006-01-02"),
			TotalPrice: b.TotalPrice,
			OccurredAt: s.now().UTC(),
		})
	}
	return d, nil
}

// List returns one page of the user's bookings with their payments.
// Listing never advances pending bookings; only Get does.
func (s *BookingService) List(ctx context.Context, userID uint64, typ repository.BookingType, page, pageSize int) ([]BookingDetail, int, error) {
	bookings, total, err := s.bookings.ListForUser(ctx, userID, typ, s.today(), page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	details := make([]BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		d := BookingDetail{Booking: b}
		p, err := s.payments.GetByBookingID(ctx, b.ID)
		if err == nil {
			d.Payment = &p
		} else if !errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, 0, err
		}
		details = append(details, d)
	}
	return details, total, nil
}

// Cancel refunds a confirmed booking and frees the room. Only future
// stays can be cancelled; the refund must succeed before the booking
// flips to CANCELLED, so a gateway failure leaves it intact.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID uint64) error {
	b, err := s.bookings.GetForUser(ctx, bookingID, userID)
	if err != nil {
		return err
	}
	switch b.Status {
	case model.BookingCancelled:
		return ErrAlreadyCancelled
	case model.BookingPending:
		return ErrCancelPending
	}
	if !s.today().Before(b.CheckIn) {
		return ErrStayStarted
	}

	p, err := s.payments.GetByBookingID(ctx, b.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return fmt.Errorf("confirmed booking %d has no payment: %w", b.ID, ErrInconsistent)
		}
		return err
	}
	if p.CaptureID == nil {
		return fmt.Errorf("confirmed booking %d has no capture id: %w", b.ID, ErrInconsistent)
	}

	if err := s.gateway.Refund(ctx, *p.CaptureID, b.TotalPrice, s.cfg.Currency); err != nil {
		return err
	}
	cancelled, err := s.bookings.Cancel(ctx, b.ID)
	if err != nil {
		return err
	}
	if cancelled && s.notifier != nil {
		s.notifier.BookingCancelled(ctx, queue.BookingCancelledEvent{
			BookingID:    b.ID,
			UserID:       b.UserID,
			RoomID:       b.RoomID,
			RefundAmount: b.TotalPrice,
			OccurredAt:   s.now().UTC(),
		})
	}
	return nil
}

// VerificationToken mints a short-lived check-in proof for a confirmed
// booking whose stay is in progress today.
func (s *BookingService) VerificationToken(ctx context.Context, userID, bookingID uint64) (string, error) {
	d, err := s.Get(ctx, userID, bookingID)
	if err != nil {
		return "", err
	}
	if d.Booking.Status != model.BookingConfirmed {
		return "", ErrNotConfirmed
	}
	today := s.today()
	if today.Before(d.Booking.CheckIn) || !today.Before(d.Booking.CheckOut) {
		return "", ErrStayNotActive
	}
	return token.Encode(map[string]any{"u": userID, "b": bookingID},
		s.cfg.Secret, token.PurposeBookingVerification, s.cfg.VerificationTTL)
}

// VerifyToken redeems a guest's verification token on behalf of hotel
// staff. The caller must administer the hotel the booked room belongs
// to.
func (s *BookingService) VerifyToken(ctx context.Context, caller model.User, proof string) (BookingDetail, error) {
	payload, err := token.Decode(proof, s.cfg.Secret, token.PurposeBookingVerification)
	if err != nil {
		return BookingDetail{}, ErrInvalidToken
	}
	userID, ok1 := token.Uint64Claim(payload, "u")
	bookingID, ok2 := token.Uint64Claim(payload, "b")
	if !ok1 || !ok2 {
		return BookingDetail{}, ErrInvalidToken
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return BookingDetail{}, err
	}
	if b.UserID != userID {
		return BookingDetail{}, repository.ErrBookingNotFound
	}
	if err := s.checkRoomAccess(ctx, caller, b.RoomID); err != nil {
		return BookingDetail{}, err
	}

	d := BookingDetail{Booking: b}
	p, err := s.payments.GetByBookingID(ctx, b.ID)
	if err == nil {
		d.Payment = &p
	} else if !errors.Is(err, repository.ErrPaymentNotFound) {
		return BookingDetail{}, err
	}
	return d, nil
}

// AdminGet returns any booking for staff of the hotel it belongs to.
func (s *BookingService) AdminGet(ctx context.Context, caller model.User, bookingID uint64) (BookingDetail, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return BookingDetail{}, err
	}
	if err := s.checkRoomAccess(ctx, caller, b.RoomID); err != nil {
		return BookingDetail{}, err
	}
	return s.advance(ctx, b)
}

func (s *BookingService) checkRoomAccess(ctx context.Context, caller model.User, roomID uint64) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	return s.access.CheckHotel(ctx, caller, room.HotelID)
}

// Available reports whether the room is free for the whole half-open
// range [from, to).
func (s *BookingService) Available(ctx context.Context, roomID uint64, from, to time.Time) (bool, error) {
	from, to = dateOnly(from), dateOnly(to)
	if !from.Before(to) {
		return false, ErrInvalidDates
	}
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return false, err
	}
	busy, err := s.bookings.HasOverlap(ctx, roomID, from, to)
	return !busy, err
}

// AvailableNow reports whether the room is free tonight.
func (s *BookingService) AvailableNow(ctx context.Context, roomID uint64) (bool, error) {
	today := s.today()
	return s.Available(ctx, roomID, today, today.Add(24*time.Hour))
}
