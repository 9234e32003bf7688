// Package distribution moves funds between swarm accounts: fan-out from
// one source to many destinations, chained transfers through disposable
// intermediate hops, and collection back into a single account.
package distribution

import (
	"errors"
	"math/rand"
)

// ErrInvalidSplit rejects a partition over zero destinations or an
// amount too small to give every destination a positive share.
var ErrInvalidSplit = errors.New("amount cannot be split across destinations")

// SplitEven partitions total into n near-equal positive shares. The
// integer rounding remainder goes to the first share.
func SplitEven(total uint64, n int) ([]uint64, error) {
	if n <= 0 || total < uint64(n) {
		return nil, ErrInvalidSplit
	}

	share := total / uint64(n)
	shares := make([]uint64, n)
	for i := range shares {
		shares[i] = share
	}
	shares[0] += total - share*uint64(n)
	return shares, nil
}

// SplitRandom partitions total into n random positive shares summing
// exactly to total. Each share starts from an even floor and trades a
// random portion with the first share, which also absorbs the rounding
// remainder.
func SplitRandom(total uint64, n int) ([]uint64, error) {
	shares, err := SplitEven(total, n)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return shares, nil
	}

	// Shift up to half of each share onto the first one, then scatter
	// half of the accumulated surplus back. Every share stays positive
	// and the sum is untouched.
	for i := 1; i < n; i++ {
		give := uint64(rand.Int63n(int64(shares[i]/2 + 1)))
		shares[i] -= give
		shares[0] += give
	}
	for i := 1; i < n; i++ {
		back := uint64(rand.Int63n(int64(shares[0]/2 + 1)))
		shares[0] -= back
		shares[i] += back
	}
	return shares, nil
}
