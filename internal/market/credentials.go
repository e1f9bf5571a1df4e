package market

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials decides how passwords are stored in the snapshot and checked
// at login.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// PlainCredentials stores and compares passwords as-is. It is the default
// so existing plaintext snapshots keep working. Not for real deployments.
type PlainCredentials struct{}

func (PlainCredentials) Hash(password string) (string, error) { return password, nil }

func (PlainCredentials) Verify(stored, password string) bool { return stored == password }

type BcryptCredentials struct {
	Cost int // 0 means bcrypt.DefaultCost
}

func (c BcryptCredentials) Hash(password string) (string, error) {
	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

func (BcryptCredentials) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// rehasher is implemented by credentials that can spot a stored password
// their Hash did not produce.
type rehasher interface {
	NeedsRehash(stored string) bool
}

// NeedsRehash reports whether stored is not a bcrypt hash, e.g. a plaintext
// password from a snapshot written before hashing was enabled.
func (BcryptCredentials) NeedsRehash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err != nil
}
