package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// RoomRepo provides persistence for rooms.
type RoomRepo struct{ DB *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{DB: db} }

// RoomFilter narrows a room search; nil fields are ignored.
type RoomFilter struct {
	HotelID  *uint64
	Type     *string
	PriceMin *float64
	PriceMax *float64
	Page     int
	PageSize int
}

func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO rooms (hotel_id, type, price) VALUES (?,?,?)",
		room.HotelID, room.Type, room.Price)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = uint64(id)
	return nil
}

func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	var room model.Room
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, hotel_id, type, price FROM rooms WHERE id=? LIMIT 1", id).
		Scan(&room.ID, &room.HotelID, &room.Type, &room.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return room, ErrRoomNotFound
	}
	return room, err
}

func (r *RoomRepo) Update(ctx context.Context, room *model.Room) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE rooms SET type=?, price=? WHERE id=?", room.Type, room.Price, room.ID)
	return err
}

func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM rooms WHERE id=?", id)
	return err
}

// Search returns a page of rooms matching the filter plus the total
// match count for pagination.
func (r *RoomRepo) Search(ctx context.Context, f RoomFilter) ([]model.Room, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.HotelID != nil {
		where += " AND hotel_id=?"
		args = append(args, *f.HotelID)
	}
	if f.Type != nil {
		where += " AND type=?"
		args = append(args, *f.Type)
	}
	if f.PriceMin != nil {
		where += " AND price>=?"
		args = append(args, *f.PriceMin)
	}
	if f.PriceMax != nil {
		where += " AND price<=?"
		args = append(args, *f.PriceMax)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM rooms"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 25
	}
	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, hotel_id, type, price FROM rooms"+where+" ORDER BY id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	rooms := []model.Room{}
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.HotelID, &room.Type, &room.Price); err != nil {
			return nil, 0, err
		}
		rooms = append(rooms, room)
	}
	return rooms, total, rows.Err()
}
