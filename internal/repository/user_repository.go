package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// UserRepo provides persistence for user accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, email, password_hash, first_name, last_name, phone_number, role, mfa_secret, created_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var phone, mfa sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone, &u.Role, &mfa, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, err
	}
	if phone.Valid {
		u.PhoneNumber = &phone.String
	}
	if mfa.Valid {
		u.MFASecret = &mfa.String
	}
	return u, nil
}

// Create inserts the user and populates its generated ID. Emails are
// normalized to lower case; a duplicate maps to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, phone_number, role) VALUES (?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, int(u.Role))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// UpdateMFASecret stores or clears (nil) the TOTP secret.
func (r *UserRepo) UpdateMFASecret(ctx context.Context, id uint64, secret *string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET mfa_secret=? WHERE id=?", secret, id)
	return err
}

// UpdateProfile edits the mutable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, firstName, lastName string, phone *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, phone_number=? WHERE id=?",
		firstName, lastName, phone, id)
	return err
}

// Search returns one page of accounts whose email or name contains the
// query, newest first, plus the total match count. An empty query lists
// everyone.
func (r *UserRepo) Search(ctx context.Context, query string, page, pageSize int) ([]model.User, int, error) {
	where := ""
	args := []any{}
	if query != "" {
		like := "%" + query + "%"
		where = " WHERE email LIKE ? OR first_name LIKE ? OR last_name LIKE ?"
		args = append(args, like, like, like)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}
	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+where+" ORDER BY id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		var phone, mfa sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone, &u.Role, &mfa, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		if phone.Valid {
			u.PhoneNumber = &phone.String
		}
		if mfa.Valid {
			u.MFASecret = &mfa.String
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateRole changes a user's privilege rank.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", int(role), id)
	return err
}
