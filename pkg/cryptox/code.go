package cryptox

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// MaxCodeLength bounds numeric codes to something a person can read out.
const MaxCodeLength = 32

var ten = big.NewInt(10)

// GenerateNumericCode returns a code of length decimal digits, each drawn
// independently and uniformly from crypto/rand. Leading zeros are kept.
func GenerateNumericCode(length int) (string, error) {
	return generateNumericCode(rand.Reader, length)
}

func generateNumericCode(r io.Reader, length int) (string, error) {
	if length <= 0 || length > MaxCodeLength {
		return "", fmt.Errorf("code length must be between 1 and %d, got %d", MaxCodeLength, length)
	}

	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}

	return string(buf), nil
}
