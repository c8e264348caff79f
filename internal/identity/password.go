package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	passwordLength   = 20
	passwordAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// GeneratePassword returns the random initial password assigned to a newly
// provisioned account. The user never sees it; it only exists so the account
// has a credential until a local password reset.
func GeneratePassword() (string, error) {
	return randomString(passwordLength, passwordAlphabet)
}

// randomString draws length characters from alphabet using a
// cryptographically secure source. Invalid arguments are programming
// errors, not runtime conditions, and panic.
func randomString(length int, alphabet string) (string, error) {
	if length < 1 {
		panic("randomString: length must be a positive integer")
	}
	if len(alphabet) < 2 {
		panic("randomString: alphabet must contain at least two symbols")
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}

	return string(out), nil
}
