package model

// Room mirrors the `rooms` table. Price is the nightly rate.
type Room struct {
	ID      uint64
	HotelID uint64
	Type    string
	Price   float64
}
