package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// HotelAdminRepo manages the user-to-hotel administration join. The
// user_id column is UNIQUE, so the at-most-one-hotel rule is enforced
// by the database as well as checked here.
type HotelAdminRepo struct{ DB *sql.DB }

func NewHotelAdminRepo(db *sql.DB) *HotelAdminRepo { return &HotelAdminRepo{DB: db} }

// Assign makes the user an administrator of the hotel. A user already
// administering any hotel maps to ErrHotelAdminTaken.
func (r *HotelAdminRepo) Assign(ctx context.Context, hotelID, userID uint64) (model.HotelAdmin, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO hotel_admins (hotel_id, user_id) VALUES (?,?)", hotelID, userID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.HotelAdmin{}, ErrHotelAdminTaken
		}
		return model.HotelAdmin{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.HotelAdmin{}, err
	}
	return model.HotelAdmin{ID: uint64(id), HotelID: hotelID, UserID: userID}, nil
}

// IsAdmin reports whether the user administers the hotel.
func (r *HotelAdminRepo) IsAdmin(ctx context.Context, hotelID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM hotel_admins WHERE hotel_id=? AND user_id=? LIMIT 1",
		hotelID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Remove revokes the user's administration of any hotel.
func (r *HotelAdminRepo) Remove(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM hotel_admins WHERE user_id=?", userID)
	return err
}
