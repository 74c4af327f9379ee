package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// HotelRepo provides persistence for hotels.
type HotelRepo struct{ DB *sql.DB }

func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{DB: db} }

func (r *HotelRepo) Create(ctx context.Context, h *model.Hotel) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO hotels (name, address, description) VALUES (?,?,?)",
		h.Name, h.Address, h.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

func (r *HotelRepo) GetByID(ctx context.Context, id uint64) (model.Hotel, error) {
	var h model.Hotel
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, address, description FROM hotels WHERE id=? LIMIT 1", id).
		Scan(&h.ID, &h.Name, &h.Address, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return h, ErrHotelNotFound
	}
	if err != nil {
		return h, err
	}
	if desc.Valid {
		h.Description = &desc.String
	}
	return h, nil
}

func (r *HotelRepo) Update(ctx context.Context, h *model.Hotel) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE hotels SET name=?, address=?, description=? WHERE id=?",
		h.Name, h.Address, h.Description, h.ID)
	return err
}

// List returns one page of hotels ordered by id.
func (r *HotelRepo) List(ctx context.Context, page, pageSize int) ([]model.Hotel, error) {
	if page < 1 {
		page = 1
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, address, description FROM hotels ORDER BY id LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hotels := []model.Hotel{}
	for rows.Next() {
		var h model.Hotel
		var desc sql.NullString
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &desc); err != nil {
			return nil, err
		}
		if desc.Valid {
			h.Description = &desc.String
		}
		hotels = append(hotels, h)
	}
	return hotels, rows.Err()
}

func (r *HotelRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM hotels").Scan(&n)
	return n, err
}
