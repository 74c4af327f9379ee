package model

import "time"

// Role is an ordered privilege rank. The numeric values are part of the
// stored data and are deliberately non-contiguous; only their relative
// order matters for authorization checks.
type Role int

const (
	RoleUser         Role = 0
	RoleBookingAdmin Role = 1
	RoleRoomAdmin    Role = 2
	RoleHotelAdmin   Role = 100
	RoleGlobalAdmin  Role = 999
)

// ValidRole reports whether v is one of the defined ranks.
func ValidRole(v int) bool {
	switch Role(v) {
	case RoleUser, RoleBookingAdmin, RoleRoomAdmin, RoleHotelAdmin, RoleGlobalAdmin:
		return true
	}
	return false
}

// AtLeast reports whether the role grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool { return r >= min }

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleBookingAdmin:
		return "BOOKING_ADMIN"
	case RoleRoomAdmin:
		return "ROOM_ADMIN"
	case RoleHotelAdmin:
		return "HOTEL_ADMIN"
	case RoleGlobalAdmin:
		return "GLOBAL_ADMIN"
	}
	return "UNKNOWN"
}

// User mirrors the `users` table.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  *string
	Role         Role
	MFASecret    *string // base32 TOTP secret, nil when MFA is disabled
	CreatedAt    time.Time
}

// MFAEnabled reports whether the user has enrolled a TOTP secret.
func (u *User) MFAEnabled() bool { return u.MFASecret != nil }
