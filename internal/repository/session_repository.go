package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// SessionRepo persists login sessions. Sessions are never deleted; token
// expiry bounds their useful lifetime, and rotating the nonce revokes
// every token minted before the rotation.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// newNonce returns 8 random bytes as 16 hex chars.
func newNonce() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Create opens a new session for the user with a fresh nonce.
func (r *SessionRepo) Create(ctx context.Context, userID uint64) (model.Session, error) {
	nonce, err := newNonce()
	if err != nil {
		return model.Session{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, nonce) VALUES (?,?)", userID, nonce)
	if err != nil {
		return model.Session{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{ID: uint64(id), UserID: userID, Nonce: nonce}, nil
}

// Get returns the session only when id, owner and exact nonce all match.
func (r *SessionRepo) Get(ctx context.Context, id, userID uint64, nonce string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, nonce, created_at FROM sessions WHERE id=? AND user_id=? AND nonce=? LIMIT 1",
		id, userID, nonce).Scan(&s.ID, &s.UserID, &s.Nonce, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrSessionNotFound
	}
	return s, err
}

// GetByNoncePrefix matches a session whose nonce starts with the given
// prefix; MFA challenge tokens only embed the first characters.
func (r *SessionRepo) GetByNoncePrefix(ctx context.Context, id, userID uint64, prefix string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, nonce, created_at FROM sessions WHERE id=? AND user_id=? AND nonce LIKE CONCAT(?, '%') LIMIT 1",
		id, userID, prefix).Scan(&s.ID, &s.UserID, &s.Nonce, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrSessionNotFound
	}
	return s, err
}

// RotateNonce replaces the session nonce in place and returns the new
// value. Every token carrying the old nonce becomes invalid.
func (r *SessionRepo) RotateNonce(ctx context.Context, id uint64) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE sessions SET nonce=? WHERE id=?", nonce, id)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrSessionNotFound
	}
	return nonce, nil
}
