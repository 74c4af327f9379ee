// Package totp generates time-based one-time codes (RFC 4226 / RFC 6238):
// 6 digits, 30-second step, HMAC-SHA1 over the big-endian counter.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Step is the time-step size shared with authenticator apps.
const Step = 30 * time.Second

// Digits is the code length. Leading zeros are significant, so codes
// are handled as strings throughout.
const Digits = 6

// ErrBadSecret is returned when the shared secret is not valid base32.
var ErrBadSecret = errors.New("totp: secret is not valid base32")

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimRight(strings.TrimSpace(secret), "="))
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil {
		return nil, ErrBadSecret
	}
	return key, nil
}

// CodeAt computes the code for an explicit time slice (unix time / 30s).
func CodeAt(secret string, slice uint64) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], slice)

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226 §5.3.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", code%1_000_000), nil
}

// ValidCodes returns the codes for the previous, current and next time
// slice, tolerating one step of clock drift in either direction.
func ValidCodes(secret string) ([]string, error) {
	return validCodesAt(secret, time.Now())
}

func validCodesAt(secret string, now time.Time) ([]string, error) {
	slice := uint64(now.Unix()) / uint64(Step/time.Second)
	codes := make([]string, 0, 3)
	for _, s := range []uint64{slice - 1, slice, slice + 1} {
		code, err := CodeAt(secret, s)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Matches reports whether code is currently acceptable for the secret.
func Matches(secret, code string) bool {
	codes, err := ValidCodes(secret)
	if err != nil {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
