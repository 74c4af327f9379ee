package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// PaymentRepo persists the one-to-one payment row of each booking.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// Create stores the gateway order reference for a freshly created
// booking. The capture id is filled in later, once the gateway reports
// the order as completed.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO payments (booking_id, order_id, capture_id) VALUES (?,?,?)",
		p.BookingID, p.OrderID, p.CaptureID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID uint64) (model.Payment, error) {
	var p model.Payment
	var capture sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, booking_id, order_id, capture_id, created_at FROM payments WHERE booking_id=? LIMIT 1",
		bookingID).Scan(&p.ID, &p.BookingID, &p.OrderID, &capture, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrPaymentNotFound
	}
	if err != nil {
		return p, err
	}
	if capture.Valid {
		p.CaptureID = &capture.String
	}
	return p, nil
}
