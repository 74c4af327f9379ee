// Package token implements the compact signed-token format shared by
// authentication, MFA, password reset and booking verification. A token
// is three dot-separated base64url segments (header.payload.signature)
// signed with HMAC-SHA512. The header carries the absolute expiry;
// the purpose a token was minted for is mixed into the signing key, so
// a token issued for one flow can never verify in another.
package token

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Purpose restricts which operation may consume a token. Values are
// stable; they participate in signature derivation.
type Purpose int

const (
	PurposeAuth                Purpose = 0
	PurposePasswordReset       Purpose = 1
	PurposeAuthRefresh         Purpose = 2
	PurposeMFAChallenge        Purpose = 3
	PurposeBookingVerification Purpose = 4
)

// ErrInvalid is returned for every decode failure. Callers never learn
// whether the signature, expiry or purpose check failed.
var ErrInvalid = errors.New("invalid token")

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Exp int64  `json:"exp"`
}

var enc = base64.RawURLEncoding

// sigKey derives the per-purpose HMAC key.
func sigKey(secret []byte, purpose Purpose) []byte {
	k := make([]byte, 0, len(secret)+4)
	k = append(k, secret...)
	return strconv.AppendInt(k, int64(purpose), 10)
}

func sign(signingInput string, secret []byte, purpose Purpose) []byte {
	mac := hmac.New(sha512.New, sigKey(secret, purpose))
	mac.Write([]byte(signingInput))
	return mac.Sum(nil)
}

// Encode builds a signed token for the given purpose. An expiresIn of
// exactly zero produces a token that never expires (exp 0).
func Encode(payload map[string]any, secret []byte, purpose Purpose, expiresIn time.Duration) (string, error) {
	var exp int64
	if expiresIn != 0 {
		exp = time.Now().Add(expiresIn).Unix()
	}
	hdrJSON, err := json.Marshal(header{Alg: "HS512", Typ: "JWT", Exp: exp})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	signingInput := enc.EncodeToString(hdrJSON) + "." + enc.EncodeToString(payloadJSON)
	sig := sign(signingInput, secret, purpose)
	return signingInput + "." + enc.EncodeToString(sig), nil
}

// Decode verifies the signature, expiry and purpose of tok and returns
// its payload. Any failure yields ErrInvalid.
func Decode(tok string, secret []byte, purpose Purpose) (map[string]any, error) {
	parts := splitToken(tok)
	if parts == nil {
		return nil, ErrInvalid
	}

	hdrJSON, err := enc.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalid
	}
	var hdr header
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, ErrInvalid
	}
	if hdr.Alg != "HS512" || hdr.Typ != "JWT" {
		return nil, ErrInvalid
	}
	if hdr.Exp != 0 && hdr.Exp <= time.Now().Unix() {
		return nil, ErrInvalid
	}

	sig, err := enc.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalid
	}
	want := sign(parts[0]+"."+parts[1], secret, purpose)
	if !hmac.Equal(sig, want) {
		return nil, ErrInvalid
	}

	payloadJSON, err := enc.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalid
	}
	var payload map[string]any
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, ErrInvalid
	}
	return payload, nil
}

// splitToken returns the three segments of tok, or nil when the segment
// count is wrong.
func splitToken(tok string) []string {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return nil
	}
	return parts
}

// Uint64Claim extracts a numeric claim from a decoded payload. JSON
// numbers arrive as float64.
func Uint64Claim(payload map[string]any, key string) (uint64, bool) {
	v, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	}
	return 0, false
}

// StringClaim extracts a string claim from a decoded payload.
func StringClaim(payload map[string]any, key string) (string, bool) {
	s, ok := payload[key].(string)
	return s, ok
}
