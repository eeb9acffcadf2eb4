package services

import (
	"crypto/rand"
	"math/big"
)

// sampleWithoutReplacement returns k distinct members of pool chosen uniformly at random.
// It runs a partial Fisher-Yates shuffle over a copy of pool using crypto/rand.
func sampleWithoutReplacement(pool []string, k int) ([]string, error) {
	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return []string{}, nil
	}

	tmp := make([]string, len(pool))
	copy(tmp, pool)

	for i := 0; i < k; i++ {
		n := big.NewInt(int64(len(tmp) - i))
		r, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, err
		}
		j := i + int(r.Int64())
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp[:k], nil
}
