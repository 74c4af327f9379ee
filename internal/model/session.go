package model

import "time"

// Session represents one authenticated login. The nonce is embedded in
// every token issued for the session; rotating it invalidates all
// previously issued tokens without touching the row itself.
type Session struct {
	ID        uint64
	UserID    uint64
	Nonce     string // 16 hex chars
	CreatedAt time.Time
}
