package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/token"
	"github.com/iliyamo/hotel-room-booking/internal/totp"
)

const testTOTPSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func newAuthEnv(t *testing.T) (*AuthService, *fakeUsers, *fakeNotifier) {
	t.Helper()
	users := newFakeUsers()
	notifier := &fakeNotifier{}
	svc := NewAuthService(users, newFakeSessions(), notifier, AuthConfig{
		Secret:     []byte("test-secret"),
		AuthTTL:    time.Hour,
		RefreshTTL: 24 * time.Hour,
		MFATTL:     30 * time.Minute,
		ResetTTL:   30 * time.Minute,
		BcryptCost: 4,
	})
	return svc, users, notifier
}

func register(t *testing.T, svc *AuthService, email string) TokenPair {
	t.Helper()
	_, pair, err := svc.Register(context.Background(), RegisterParams{
		Email:     email,
		Password:  "hunter2hunter2",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return pair
}

func currentCode(t *testing.T) string {
	t.Helper()
	codes, err := totp.ValidCodes(testTOTPSecret)
	if err != nil {
		t.Fatalf("ValidCodes: %v", err)
	}
	return codes[1]
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	_, _, err := svc.Register(context.Background(), RegisterParams{Email: "a@b.c", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	register(t, svc, "dup@example.com")
	_, _, err := svc.Register(context.Background(), RegisterParams{
		Email: "dup@example.com", Password: "hunter2hunter2",
	})
	if !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
}

func TestRegisterIgnoresRoleOutsideDebug(t *testing.T) {
	svc, users, _ := newAuthEnv(t)
	u, _, err := svc.Register(context.Background(), RegisterParams{
		Email: "a@example.com", Password: "hunter2hunter2", Role: 999,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	stored, _ := users.GetByID(context.Background(), u.ID)
	if stored.Role != 0 {
		t.Fatalf("role = %d, want USER", stored.Role)
	}
}

func TestSearchUsers(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	ctx := context.Background()
	register(t, svc, "ada@example.com")
	register(t, svc, "grace@example.com")
	register(t, svc, "alan@other.net")

	all, total, err := svc.SearchUsers(ctx, "", 1, 25)
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("listed %d of %d users, want 3 of 3", len(all), total)
	}
	// Newest account first.
	if all[0].Email != "alan@other.net" {
		t.Fatalf("first user = %s, want alan@other.net", all[0].Email)
	}

	matched, total, err := svc.SearchUsers(ctx, "example.com", 1, 25)
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if total != 2 || len(matched) != 2 {
		t.Fatalf("matched %d of %d users, want 2 of 2", len(matched), total)
	}

	page, total, err := svc.SearchUsers(ctx, "", 2, 2)
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Fatalf("page 2 holds %d of %d users, want 1 of 3", len(page), total)
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	register(t, svc, "ada@example.com")

	res, err := svc.Login(context.Background(), "ada@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.MFARequired {
		t.Fatal("MFA challenge issued for an account without MFA")
	}

	u, sess, err := svc.Authenticate(context.Background(), res.Pair.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Email != "ada@example.com" || sess.UserID != u.ID {
		t.Fatalf("authenticated as %q session user %d", u.Email, sess.UserID)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	register(t, svc, "ada@example.com")

	if _, err := svc.Login(context.Background(), "ada@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "hunter2hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	pair := register(t, svc, "ada@example.com")

	if _, _, err := svc.Authenticate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	pair := register(t, svc, "ada@example.com")

	renewed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, _, err := svc.Authenticate(context.Background(), renewed.Token); err != nil {
		t.Fatalf("Authenticate renewed token: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), pair.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh token: err = %v", err)
	}
	if _, err := svc.Refresh(context.Background(), "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage accepted: err = %v", err)
	}
}

func TestMFAFlow(t *testing.T) {
	svc, users, _ := newAuthEnv(t)
	register(t, svc, "ada@example.com")
	ctx := context.Background()

	u, _ := users.GetByEmail(ctx, "ada@example.com")
	if err := svc.EnableMFA(ctx, u, testTOTPSecret, currentCode(t), "hunter2hunter2"); err != nil {
		t.Fatalf("EnableMFA: %v", err)
	}

	res, err := svc.Login(ctx, "ada@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.MFARequired {
		t.Fatal("expected an MFA challenge")
	}
	if res.Pair.Token != "" {
		t.Fatal("challenge response leaked a token pair")
	}

	if _, _, err := svc.VerifyMFA(ctx, res.MFAToken, "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code: err = %v, want ErrInvalidCode", err)
	}

	_, pair, err := svc.VerifyMFA(ctx, res.MFAToken, currentCode(t))
	if err != nil {
		t.Fatalf("VerifyMFA: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, pair.Token); err != nil {
		t.Fatalf("Authenticate after MFA: %v", err)
	}

	// The nonce rotated on success, so the same challenge no longer
	// resolves to the session.
	if _, _, err := svc.VerifyMFA(ctx, res.MFAToken, currentCode(t)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("challenge replay: err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyMFARejectsOtherPurposes(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	pair := register(t, svc, "ada@example.com")

	if _, _, err := svc.VerifyMFA(context.Background(), pair.Token, "123456"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("auth token accepted as MFA challenge: err = %v", err)
	}
}

func TestEnableMFAGuards(t *testing.T) {
	svc, users, _ := newAuthEnv(t)
	register(t, svc, "ada@example.com")
	ctx := context.Background()
	u, _ := users.GetByEmail(ctx, "ada@example.com")

	if err := svc.EnableMFA(ctx, u, testTOTPSecret, "000000", "hunter2hunter2"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("bad code: err = %v, want ErrInvalidCode", err)
	}
	if err := svc.EnableMFA(ctx, u, testTOTPSecret, currentCode(t), "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("bad password: err = %v, want ErrWrongPassword", err)
	}

	if err := svc.EnableMFA(ctx, u, testTOTPSecret, currentCode(t), "hunter2hunter2"); err != nil {
		t.Fatalf("EnableMFA: %v", err)
	}
	u, _ = users.GetByEmail(ctx, "ada@example.com")
	if err := svc.EnableMFA(ctx, u, testTOTPSecret, currentCode(t), "hunter2hunter2"); !errors.Is(err, ErrMFAAlreadyEnabled) {
		t.Fatalf("second enroll: err = %v, want ErrMFAAlreadyEnabled", err)
	}

	if err := svc.DisableMFA(ctx, u, "000000", "hunter2hunter2"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("disable with bad code: err = %v, want ErrInvalidCode", err)
	}
	if err := svc.DisableMFA(ctx, u, currentCode(t), "hunter2hunter2"); err != nil {
		t.Fatalf("DisableMFA: %v", err)
	}
	u, _ = users.GetByEmail(ctx, "ada@example.com")
	if err := svc.DisableMFA(ctx, u, currentCode(t), "hunter2hunter2"); !errors.Is(err, ErrMFANotEnabled) {
		t.Fatalf("disable twice: err = %v, want ErrMFANotEnabled", err)
	}
}

func TestPasswordReset(t *testing.T) {
	svc, _, notifier := newAuthEnv(t)
	register(t, svc, "ada@example.com")
	ctx := context.Background()

	reset, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if len(notifier.resets) != 1 || notifier.resets[0].Token != reset {
		t.Fatalf("reset event not published: %+v", notifier.resets)
	}

	if err := svc.ResetPassword(ctx, reset, "tiny"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short replacement: err = %v, want ErrWeakPassword", err)
	}
	if err := svc.ResetPassword(ctx, reset, "correct-horse-battery"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := svc.Login(ctx, "ada@example.com", "hunter2hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still accepted")
	}
	if _, err := svc.Login(ctx, "ada@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	_, err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestResetPasswordRejectsAuthToken(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	pair := register(t, svc, "ada@example.com")

	if err := svc.ResetPassword(context.Background(), pair.Token, "long-enough-pass"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestExpiredResetTokenRejected(t *testing.T) {
	svc, users, _ := newAuthEnv(t)
	register(t, svc, "ada@example.com")
	ctx := context.Background()
	u, _ := users.GetByEmail(ctx, "ada@example.com")

	expired, err := token.Encode(map[string]any{"u": u.ID}, []byte("test-secret"), token.PurposePasswordReset, -time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := svc.ResetPassword(ctx, expired, "long-enough-pass"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
