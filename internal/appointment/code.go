package appointment

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codePrefix   = "MC-"
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// NewConfirmationCode draws a human-readable code like MC-A7B3X2 from a
// cryptographically strong source. Uniqueness is enforced at insert;
// collisions are retried by the caller.
func NewConfirmationCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw confirmation code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}
