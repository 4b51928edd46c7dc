package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrHashing = errors.New("hashing failed")

type Hasher struct {
	Cost int
}

func (h Hasher) Password(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(hashBytes), nil
}

// Check reports whether password matches digest. Any failure inside the
// comparison, malformed digest included, reads as a mismatch.
func (h Hasher) Check(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
