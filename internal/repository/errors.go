// Package repository implements data access over database/sql. Sentinel
// errors below let services and handlers translate failures without
// inspecting driver-specific error text.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when registering a duplicate email.
	ErrEmailExists = errors.New("email already registered")
	// ErrSessionNotFound is returned when a session lookup misses,
	// including nonce mismatches after rotation.
	ErrSessionNotFound = errors.New("session not found")
	// ErrHotelNotFound is returned when no hotel matches the id.
	ErrHotelNotFound = errors.New("hotel not found")
	// ErrRoomNotFound is returned when no room matches the id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrBookingNotFound is returned when no booking matches the lookup.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrPaymentNotFound is returned when a booking has no payment row.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrHotelAdminTaken is returned when assigning a user who already
	// administers a hotel; a user may administer at most one.
	ErrHotelAdminTaken = errors.New("user already administers a hotel")
	// ErrDateConflict is returned when a new booking overlaps an
	// existing one for the same room.
	ErrDateConflict = errors.New("room already booked for these dates")
)

// isDuplicateKey detects MySQL duplicate-entry error 1062.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
