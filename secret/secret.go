// Package secret generates the raw secrets handed to end users (refresh
// tokens, one-time codes) and derives the digests stored in their place.
// Raw secrets never leave the caller that requested them.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strconv"
)

const refreshTokenSize = 32

var otpRange = big.NewInt(900000)

// NewRefreshToken returns a fresh 256-bit opaque token encoded as
// unpadded base64url.
func NewRefreshToken() (string, error) {
	var raw [refreshTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewOTPCode returns a six-digit numeric code drawn uniformly from
// [100000, 999999].
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpRange)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// Digest is the stored form of a secret: a plain sha256. Deterministic on
// purpose so the digest doubles as an equality-searchable key.
func Digest(raw string) [32]byte {
	return sha256.Sum256([]byte(raw))
}

// EncodeDigest renders a digest as lowercase hex for backends that key on
// strings.
func EncodeDigest(d [32]byte) string {
	return hex.EncodeToString(d[:])
}

// DecodeDigest parses the hex form produced by EncodeDigest.
func DecodeDigest(s string) ([32]byte, bool) {
	var d [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(d) {
		return d, false
	}
	copy(d[:], raw)
	return d, true
}
