package model

// Hotel mirrors the `hotels` table.
type Hotel struct {
	ID          uint64
	Name        string
	Address     string
	Description *string
}

// HotelAdmin links one user to the single hotel they administer.
// The users.user_id column carries a UNIQUE constraint so a user can
// never administer more than one hotel at a time.
type HotelAdmin struct {
	ID      uint64
	HotelID uint64
	UserID  uint64
}
