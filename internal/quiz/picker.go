package quiz

import (
	"crypto/rand"
	"math/big"
)

// Picker draws a uniform index in [0, n). *math/rand/v2.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// CryptoPicker draws indices from crypto/rand.
type CryptoPicker struct{}

// IntN returns a uniform index in [0, n). n must be positive.
func (CryptoPicker) IntN(n int) int {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(nBig.Int64())
}
