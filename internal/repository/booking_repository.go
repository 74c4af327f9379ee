package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// BookingRepo provides persistence for bookings. The overlap check and
// the insert run inside a single SERIALIZABLE transaction: two
// concurrent requests for the same room and overlapping dates must
// never both commit, and the SELECT alone cannot guarantee that.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

// BookingType filters a booking listing.
type BookingType int

const (
	BookingTypePending   BookingType = 0
	BookingTypeActive    BookingType = 1
	BookingTypeCancelled BookingType = 2
	BookingTypeExpired   BookingType = 3
	BookingTypeAll       BookingType = 4
)

const dateLayout = "2006-01-02"

const bookingColumns = "id, user_id, room_id, check_in, check_out, total_price, status, created_at"

func scanBooking(scan func(dest ...any) error) (model.Booking, error) {
	var b model.Booking
	err := scan(&b.ID, &b.UserID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.TotalPrice, &b.Status, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrBookingNotFound
	}
	return b, err
}

// Create inserts the booking after verifying no non-cancelled booking
// for the room overlaps [CheckIn, CheckOut). Overlap of [a,b) and [c,d)
// is a < d && c < b; cancelled stays do not block the room.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var clash uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM bookings
		  WHERE room_id=? AND status<>? AND check_in<? AND ?<check_out
		  LIMIT 1 FOR UPDATE`,
		b.RoomID, int(model.BookingCancelled),
		b.CheckOut.Format(dateLayout), b.CheckIn.Format(dateLayout)).Scan(&clash)
	if err == nil {
		return ErrDateConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (user_id, room_id, check_in, check_out, total_price, status) VALUES (?,?,?,?,?,?)",
		b.UserID, b.RoomID, b.CheckIn.Format(dateLayout), b.CheckOut.Format(dateLayout),
		b.TotalPrice, int(b.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	b.ID = uint64(id)
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=? LIMIT 1", id)
	return scanBooking(row.Scan)
}

// GetForUser returns the booking only when it belongs to the user.
func (r *BookingRepo) GetForUser(ctx context.Context, id, userID uint64) (model.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=? AND user_id=? LIMIT 1", id, userID)
	return scanBooking(row.Scan)
}

// ListForUser returns one page of the user's bookings, newest first,
// filtered by lifecycle type relative to now.
func (r *BookingRepo) ListForUser(ctx context.Context, userID uint64, typ BookingType, now time.Time, page, pageSize int) ([]model.Booking, int, error) {
	where := " WHERE user_id=?"
	args := []any{userID}
	switch typ {
	case BookingTypePending:
		where += " AND status=?"
		args = append(args, int(model.BookingPending))
	case BookingTypeCancelled:
		where += " AND status=?"
		args = append(args, int(model.BookingCancelled))
	case BookingTypeActive:
		where += " AND status=? AND check_out>?"
		args = append(args, int(model.BookingConfirmed), now.Format(dateLayout))
	case BookingTypeExpired:
		where += " AND status=? AND check_out<=?"
		args = append(args, int(model.BookingConfirmed), now.Format(dateLayout))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}
	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings"+where+" ORDER BY id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

// Confirm flips the booking to CONFIRMED and records the capture id,
// but only if the booking is still PENDING. Concurrent readers racing
// on the same lazy capture see exactly one winner; the losers return
// false with no error.
func (r *BookingRepo) Confirm(ctx context.Context, bookingID uint64, captureID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status=? WHERE id=? AND status=?",
		int(model.BookingConfirmed), bookingID, int(model.BookingPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE payments SET capture_id=? WHERE booking_id=?", captureID, bookingID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// Cancel flips a CONFIRMED booking to CANCELLED. Returns false when the
// booking was not in the expected state anymore.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET status=? WHERE id=? AND status=?",
		int(model.BookingCancelled), bookingID, int(model.BookingConfirmed))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a booking outright. Only used to roll back a booking
// whose payment order could not be opened; settled bookings are
// cancelled, never deleted.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	return err
}

// HasOverlap reports whether any non-cancelled booking for the room
// intersects the half-open range [from, to).
func (r *BookingRepo) HasOverlap(ctx context.Context, roomID uint64, from, to time.Time) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM bookings WHERE room_id=? AND status<>? AND check_in<? AND ?<check_out LIMIT 1",
		roomID, int(model.BookingCancelled), to.Format(dateLayout), from.Format(dateLayout)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
