package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/token"
	"github.com/iliyamo/hotel-room-booking/internal/totp"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

// mfaNoncePrefixLen is how many characters of the session nonce travel
// inside the MFA challenge token. Enough to pick the session back out,
// not enough to reconstruct the full nonce.
const mfaNoncePrefixLen = 4

// AuthConfig carries the knobs of the auth service.
type AuthConfig struct {
	Secret     []byte
	AuthTTL    time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh token lifetime
	MFATTL     time.Duration // MFA challenge lifetime
	ResetTTL   time.Duration // password reset token lifetime
	BcryptCost int
	Debug      bool // debug builds may register with an explicit role
}

// AuthService implements registration, login, MFA enrollment, token
// refresh and password reset.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	notifier Notifier
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthService(users UserStore, sessions SessionStore, notifier Notifier, cfg AuthConfig) *AuthService {
	return &AuthService{users: users, sessions: sessions, notifier: notifier, cfg: cfg, now: time.Now}
}

// TokenPair is an access token plus the refresh token that renews it.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult is either a token pair or an MFA challenge, never both.
type LoginResult struct {
	MFARequired bool
	MFAToken    string
	Pair        TokenPair
	User        model.User
}

// RegisterParams are the fields accepted at sign-up. Role is honored
// only in debug mode.
type RegisterParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber *string
	Role        int
}

func (s *AuthService) issuePair(userID, sessionID uint64, nonce string) (TokenPair, error) {
	claims := map[string]any{"u": userID, "s": sessionID, "n": nonce}
	access, err := token.Encode(claims, s.cfg.Secret, token.PurposeAuth, s.cfg.AuthTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := token.Encode(claims, s.cfg.Secret, token.PurposeAuthRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Token: access, RefreshToken: refresh}, nil
}

// Register creates the account and logs it straight in.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (model.User, TokenPair, error) {
	if len(p.Password) < 8 {
		return model.User{}, TokenPair{}, ErrWeakPassword
	}
	hash, err := utils.HashPassword(p.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}

	role := model.RoleUser
	if s.cfg.Debug && model.ValidRole(p.Role) {
		role = model.Role(p.Role)
	}
	u := model.User{
		Email:        p.Email,
		PasswordHash: hash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PhoneNumber:  p.PhoneNumber,
		Role:         role,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, TokenPair{}, err
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	pair, err := s.issuePair(u.ID, sess.ID, sess.Nonce)
	return u, pair, err
}

// Login checks the credentials and opens a session. Accounts with MFA
// enrolled get a challenge token instead of a pair; the challenge
// carries only a prefix of the session nonce.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	if u.MFAEnabled() {
		challenge, err := token.Encode(
			map[string]any{"u": u.ID, "s": sess.ID, "n": sess.Nonce[:mfaNoncePrefixLen]},
			s.cfg.Secret, token.PurposeMFAChallenge, s.cfg.MFATTL)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{MFARequired: true, MFAToken: challenge, User: u}, nil
	}

	pair, err := s.issuePair(u.ID, sess.ID, sess.Nonce)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Pair: pair, User: u}, nil
}

// VerifyMFA exchanges a challenge token plus a valid TOTP code for a
// token pair. The session nonce is rotated on success, so the prefix
// embedded in the challenge cannot be replayed.
func (s *AuthService) VerifyMFA(ctx context.Context, challenge, code string) (model.User, TokenPair, error) {
	payload, err := token.Decode(challenge, s.cfg.Secret, token.PurposeMFAChallenge)
	if err != nil {
		return model.User{}, TokenPair{}, ErrInvalidToken
	}
	userID, ok1 := token.Uint64Claim(payload, "u")
	sessionID, ok2 := token.Uint64Claim(payload, "s")
	prefix, ok3 := token.StringClaim(payload, "n")
	if !ok1 || !ok2 || !ok3 {
		return model.User{}, TokenPair{}, ErrInvalidToken
	}

	sess, err := s.sessions.GetByNoncePrefix(ctx, sessionID, userID, prefix)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return model.User{}, TokenPair{}, ErrInvalidToken
		}
		return model.User{}, TokenPair{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if u.MFAEnabled() && !totp.Matches(*u.MFASecret, code) {
		return model.User{}, TokenPair{}, ErrInvalidCode
	}

	nonce, err := s.sessions.RotateNonce(ctx, sess.ID)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	pair, err := s.issuePair(u.ID, sess.ID, nonce)
	return u, pair, err
}

// Refresh exchanges a valid refresh token for a fresh pair bound to the
// same session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	payload, err := token.Decode(refreshToken, s.cfg.Secret, token.PurposeAuthRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	userID, ok1 := token.Uint64Claim(payload, "u")
	sessionID, ok2 := token.Uint64Claim(payload, "s")
	nonce, ok3 := token.StringClaim(payload, "n")
	if !ok1 || !ok2 || !ok3 {
		return TokenPair{}, ErrInvalidToken
	}

	sess, err := s.sessions.Get(ctx, sessionID, userID, nonce)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	return s.issuePair(userID, sess.ID, sess.Nonce)
}

// Authenticate resolves an access token into the user and session it
// was minted for. Used by the auth middleware on every request.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (model.User, model.Session, error) {
	payload, err := token.Decode(accessToken, s.cfg.Secret, token.PurposeAuth)
	if err != nil {
		return model.User{}, model.Session{}, ErrInvalidToken
	}
	userID, ok1 := token.Uint64Claim(payload, "u")
	sessionID, ok2 := token.Uint64Claim(payload, "s")
	nonce, ok3 := token.StringClaim(payload, "n")
	if !ok1 || !ok2 || !ok3 {
		return model.User{}, model.Session{}, ErrInvalidToken
	}

	sess, err := s.sessions.Get(ctx, sessionID, userID, nonce)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return model.User{}, model.Session{}, ErrInvalidToken
		}
		return model.User{}, model.Session{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	return u, sess, nil
}

// SearchUsers lists accounts for global administrators, optionally
// filtered by a substring of email or name.
func (s *AuthService) SearchUsers(ctx context.Context, query string, page, pageSize int) ([]model.User, int, error) {
	return s.users.Search(ctx, query, page, pageSize)
}

// RequestPasswordReset mints a reset token and hands it to the
// notification pipeline. The token is also returned so debug builds can
// expose it without a mail worker.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	reset, err := token.Encode(map[string]any{"u": u.ID}, s.cfg.Secret, token.PurposePasswordReset, s.cfg.ResetTTL)
	if err != nil {
		return "", err
	}
	if s.notifier != nil {
		s.notifier.PasswordResetRequested(ctx, queue.PasswordResetRequestedEvent{
			UserID:     u.ID,
			Email:      u.Email,
			Token:      reset,
			OccurredAt: s.now().UTC(),
		})
	}
	return reset, nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	payload, err := token.Decode(resetToken, s.cfg.Secret, token.PurposePasswordReset)
	if err != nil {
		return ErrInvalidToken
	}
	userID, ok := token.Uint64Claim(payload, "u")
	if !ok {
		return ErrInvalidToken
	}
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// EnableMFA enrolls a TOTP secret. The caller must prove possession of
// the secret with a current code and confirm the account password.
func (s *AuthService) EnableMFA(ctx context.Context, u model.User, secret, code, password string) error {
	if u.MFAEnabled() {
		return ErrMFAAlreadyEnabled
	}
	if !totp.Matches(secret, code) {
		return ErrInvalidCode
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return ErrWrongPassword
	}
	return s.users.UpdateMFASecret(ctx, u.ID, &secret)
}

// DisableMFA removes the TOTP secret after the same two proofs.
func (s *AuthService) DisableMFA(ctx context.Context, u model.User, code, password string) error {
	if !u.MFAEnabled() {
		return ErrMFANotEnabled
	}
	if !totp.Matches(*u.MFASecret, code) {
		return ErrInvalidCode
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return ErrWrongPassword
	}
	return s.users.UpdateMFASecret(ctx, u.ID, nil)
}
