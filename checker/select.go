package checker

import (
	"math/rand/v2"

	"github.com/lukemcguire/synthlinks/result"
)

// SelectLinks picks the links to follow. limit counts the origin link, so at
// most limit-1 links are returned. RANDOM shuffles the whole candidate set
// before cutting, so every subset of that size is equally likely. links is
// never modified. A nil rng uses the global source.
func SelectLinks(links []result.Link, limit int, order result.LinkOrder, rng *rand.Rand) []result.Link {
	n := min(limit-1, len(links))
	if n <= 0 {
		return []result.Link{}
	}

	picked := make([]result.Link, len(links))
	copy(picked, links)

	if order == result.LinkOrderRandom {
		swap := func(i, j int) { picked[i], picked[j] = picked[j], picked[i] }
		if rng != nil {
			rng.Shuffle(len(picked), swap)
		} else {
			rand.Shuffle(len(picked), swap)
		}
	}

	return picked[:n:n]
}
