package simulator

import (
	"fmt"
	"math/rand/v2"
)

func pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// between returns a uniform integer in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

// RandomIP returns a dotted-quad IPv4 address with every octet in 1..255.
func RandomIP(r *rand.Rand) string {
	return fmt.Sprintf("%d.%d.%d.%d", between(r, 1, 255), between(r, 1, 255), between(r, 1, 255), between(r, 1, 255))
}
