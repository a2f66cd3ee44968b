package helpers

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	"api/internal/configuration"
)

// GenerateCode draws a one-time code of the given length from the code
// alphabet using crypto/rand. Each position is sampled independently so the
// space is charset^length and collisions are negligible.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = configuration.DefaultCodeLength
	}

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(configuration.CodeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = configuration.CodeCharset[n.Int64()]
	}
	return string(code), nil
}

// SecureCompare reports whether two codes match, in time independent of where
// they differ. Comparison is exact: no trimming, no case folding.
func SecureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
