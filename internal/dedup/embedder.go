package dedup

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// lexicalDims is the dimensionality of the hashed bag-of-words space.
// Large enough that unrelated short texts rarely collide into the same
// buckets.
const lexicalDims = 256

// LexicalEmbedder is a deterministic, dependency-free embedder: tokens
// are lowercased, hashed into a fixed-size frequency vector, and the
// vector is unit-normalized. Near-identical texts score cosine ≈ 1,
// unrelated texts score near 0. It stands in wherever a real
// sentence-embedding model is not wired.
type LexicalEmbedder struct{}

func (LexicalEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, lexicalDims)

	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:\"'()[]")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%lexicalDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}
