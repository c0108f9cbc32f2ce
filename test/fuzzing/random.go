package fuzzing

import (
	"fmt"
	"math/rand"
)

// RandomSwitch returns a function that will output various integers at different weights.
//
// Ex. RandomSwitch(2, 3, 5) will return a function that will output:
//   - `0` 20% of the time
//   - `1` 30% of the time
//   - `2` 50% of the time
func RandomSwitch(weights ...int) func(rndm *rand.Rand) int {
	if len(weights) == 0 {
		panic("a random switch must have at least 1 weight")
	}

	var sum int
	for _, w := range weights {
		if w <= 0 {
			panic(fmt.Sprintf("weights must be positive, got %d", w))
		}
		sum += w
	}

	return func(rndm *rand.Rand) int {
		value := rndm.Intn(sum)
		threshold := 0
		for i, w := range weights {
			threshold += w
			if value < threshold {
				return i
			}
		}
		panic(fmt.Sprintf("random value generated was out of bounds: %d", value))
	}
}

// Pick returns a random element of a non-empty slice.
func Pick[T any](rndm *rand.Rand, items []T) T {
	return items[rndm.Intn(len(items))]
}

var words = []string{
	"acid", "base", "salt", "the", "of", "which", "following", "is", "an",
	"element", "reaction", "<sub>2</sub>", "<sup>3</sup>", "solution", "energy",
}

// RandomSentence strings `length` random words together.
func RandomSentence(rndm *rand.Rand, length int) string {
	out := ""
	for i := 0; i < length; i++ {
		if i > 0 {
			out += " "
		}
		out += Pick(rndm, words)
	}
	return out
}
