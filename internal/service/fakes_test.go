package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/paypal"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// In-memory stores implementing the service interfaces. They reproduce
// the repository semantics that matter to the services: sentinel
// errors, overlap rejection and conditional state flips.

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uint64]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Search(_ context.Context, query string, page, pageSize int) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for id := f.nextID; id >= 1; id-- {
		u, ok := f.byID[id]
		if !ok {
			continue
		}
		if query != "" && !strings.Contains(u.Email, query) &&
			!strings.Contains(u.FirstName, query) && !strings.Contains(u.LastName, query) {
			continue
		}
		out = append(out, u)
	}
	total := len(out)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (f *fakeUsers) UpdateMFASecret(_ context.Context, id uint64, secret *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.MFASecret = secret
	f.byID[id] = u
	return nil
}

type fakeSessions struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.Session
}

func newFakeSessions() *fakeSessions { return &fakeSessions{byID: map[uint64]model.Session{}} }

func (f *fakeSessions) nonce() string {
	// Unique and 16 hex chars, like the real store.
	return fmt.Sprintf("%016x", f.nextID*0x9e3779b97f4a7c15+7)
}

func (f *fakeSessions) Create(_ context.Context, userID uint64) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := model.Session{ID: f.nextID, UserID: userID, Nonce: f.nonce()}
	f.byID[s.ID] = s
	return s, nil
}

func (f *fakeSessions) Get(_ context.Context, id, userID uint64, nonce string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.UserID != userID || s.Nonce != nonce {
		return model.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) GetByNoncePrefix(_ context.Context, id, userID uint64, prefix string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.UserID != userID || len(prefix) > len(s.Nonce) || s.Nonce[:len(prefix)] != prefix {
		return model.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) RotateNonce(_ context.Context, id uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return "", repository.ErrSessionNotFound
	}
	f.nextID++
	s.Nonce = f.nonce()
	f.byID[id] = s
	return s.Nonce, nil
}

type fakeRooms struct {
	byID map[uint64]model.Room
}

func (f *fakeRooms) GetByID(_ context.Context, id uint64) (model.Room, error) {
	r, ok := f.byID[id]
	if !ok {
		return model.Room{}, repository.ErrRoomNotFound
	}
	return r, nil
}

type fakeAdmins struct {
	admins map[uint64]uint64 // userID -> hotelID
}

func (f *fakeAdmins) IsAdmin(_ context.Context, hotelID, userID uint64) (bool, error) {
	h, ok := f.admins[userID]
	return ok && h == hotelID, nil
}

type fakeBookings struct {
	mu       sync.Mutex
	nextID   uint64
	byID     map[uint64]model.Booking
	payments *fakePayments // Confirm records the capture id, like the real store
}

func newFakeBookings(payments *fakePayments) *fakeBookings {
	return &fakeBookings{byID: map[uint64]model.Booking{}, payments: payments}
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.RoomID == b.RoomID && existing.Status != model.BookingCancelled &&
			existing.Overlaps(b.CheckIn, b.CheckOut) {
			return repository.ErrDateConflict
		}
	}
	f.nextID++
	b.ID = f.nextID
	f.byID[b.ID] = *b
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookings) GetForUser(_ context.Context, id, userID uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok || b.UserID != userID {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookings) ListForUser(_ context.Context, userID uint64, typ repository.BookingType, now time.Time, page, pageSize int) ([]model.Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for id := f.nextID; id >= 1; id-- {
		b, ok := f.byID[id]
		if !ok || b.UserID != userID {
			continue
		}
		keep := false
		switch typ {
		case repository.BookingTypeAll:
			keep = true
		case repository.BookingTypePending:
			keep = b.Status == model.BookingPending
		case repository.BookingTypeCancelled:
			keep = b.Status == model.BookingCancelled
		case repository.BookingTypeActive:
			keep = b.Status == model.BookingConfirmed && b.CheckOut.After(now)
		case repository.BookingTypeExpired:
			keep = b.Status == model.BookingConfirmed && !b.CheckOut.After(now)
		}
		if keep {
			out = append(out, b)
		}
	}
	total := len(out)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (f *fakeBookings) Confirm(_ context.Context, bookingID uint64, captureID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[bookingID]
	if !ok || b.Status != model.BookingPending {
		return false, nil
	}
	b.Status = model.BookingConfirmed
	f.byID[bookingID] = b
	f.payments.setCapture(bookingID, captureID)
	return true, nil
}

func (f *fakeBookings) Cancel(_ context.Context, bookingID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[bookingID]
	if !ok || b.Status != model.BookingConfirmed {
		return false, nil
	}
	b.Status = model.BookingCancelled
	f.byID[bookingID] = b
	return true, nil
}

func (f *fakeBookings) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeBookings) HasOverlap(_ context.Context, roomID uint64, from, to time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.RoomID == roomID && b.Status != model.BookingCancelled && b.Overlaps(from, to) {
			return true, nil
		}
	}
	return false, nil
}

type fakePayments struct {
	mu        sync.Mutex
	nextID    uint64
	byBooking map[uint64]model.Payment
}

func newFakePayments() *fakePayments { return &fakePayments{byBooking: map[uint64]model.Payment{}} }

func (f *fakePayments) Create(_ context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.byBooking[p.BookingID] = *p
	return nil
}

func (f *fakePayments) GetByBookingID(_ context.Context, bookingID uint64) (model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byBooking[bookingID]
	if !ok {
		return model.Payment{}, repository.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePayments) setCapture(bookingID uint64, captureID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.byBooking[bookingID]
	p.CaptureID = &captureID
	f.byBooking[bookingID] = p
}

type fakeGateway struct {
	mu         sync.Mutex
	orders     int
	paid       map[string]bool // orderID -> buyer approved
	captures   int
	refunds    map[string]int // captureID -> refund calls
	failCreate bool
	failRefund bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{paid: map[string]bool{}, refunds: map[string]int{}}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount float64, currency string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return "", paypal.ErrGateway
	}
	g.orders++
	id := fmt.Sprintf("ORD-%d", g.orders)
	g.paid[id] = false
	return id, nil
}

func (g *fakeGateway) Capture(_ context.Context, orderID string) (paypal.CaptureResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paid[orderID] {
		return paypal.CaptureResult{Status: paypal.CapturePending}, nil
	}
	g.captures++
	return paypal.CaptureResult{
		Status:    paypal.CaptureCompleted,
		CaptureID: fmt.Sprintf("CAP-%s", orderID),
	}, nil
}

func (g *fakeGateway) Refund(_ context.Context, captureID string, amount float64, currency string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRefund {
		return paypal.ErrGateway
	}
	g.refunds[captureID]++
	return nil
}

func (g *fakeGateway) markPaid(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[orderID] = true
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
	resets    []queue.PasswordResetRequestedEvent
}

func (n *fakeNotifier) BookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, ev)
}

func (n *fakeNotifier) BookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, ev)
}

func (n *fakeNotifier) PasswordResetRequested(_ context.Context, ev queue.PasswordResetRequestedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, ev)
}
