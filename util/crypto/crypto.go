// Package crypto provides the credential hashers used to store and check user passwords.
package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/userhub/userhub/util/common"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt = "bcrypt"
	SchemeSHA256 = "sha256"
)

// Hasher turns a plaintext password into a storable digest and checks a plaintext against it.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) bool
}

// NewHasher returns the hasher for scheme. bcryptCost is ignored by the sha256 scheme.
func NewHasher(scheme string, bcryptCost int) (Hasher, error) {
	switch scheme {
	case SchemeBcrypt:
		return NewBcryptHasher(bcryptCost), nil
	case SchemeSHA256:
		return SHA256Hasher{}, nil
	}
	return nil, common.NewErrorf("unknown password hash scheme: %q", scheme)
}

// BcryptHasher produces salted bcrypt digests. The password is first reduced to its hex
// SHA-256 digest, which fits bcrypt's 72-byte input limit, so passwords of any length are
// accepted and no two are truncated to the same input.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash generates a bcrypt hash of the given password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), h.cost)
	return string(hash), err
}

// Verify reports whether password matches the bcrypt digest.
func (h *BcryptHasher) Verify(digest, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), prehash(password))
	return err == nil
}

func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum[:])
	return out
}

// SHA256Hasher produces unsalted hex SHA-256 digests. Deterministic, and fast enough to
// brute-force; only for databases written with this scheme.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Verify(digest, password string) bool {
	want, _ := h.Hash(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(want)) == 1
}

var (
	_ Hasher = (*BcryptHasher)(nil)
	_ Hasher = SHA256Hasher{}
)
