package montage

import (
	"math"

	"github.com/google/uuid"
)

// Order arranges video items into a visually coherent sequence using a
// greedy nearest-neighbor tour over cosine similarity. Items without a
// vector are dropped from the order (their archival fate is decided
// elsewhere). The tour is seeded with the first item in discovery order
// and ties go to the earliest remaining candidate, so the result is
// deterministic for a fixed input order and fixed vectors.
func Order(items []ItemEmbedding) []uuid.UUID {
	remaining := make([]ItemEmbedding, 0, len(items))
	for _, it := range items {
		if it.HasVector() {
			remaining = append(remaining, it)
		}
	}
	if len(remaining) == 0 {
		return nil
	}

	ordered := make([]uuid.UUID, 0, len(remaining))
	current := remaining[0]
	remaining = remaining[1:]
	ordered = append(ordered, current.ItemID)

	for len(remaining) > 0 {
		bestIdx := 0
		bestSim := math.Inf(-1)
		for i, cand := range remaining {
			sim := cosine(current.Vector, cand.Vector)
			if sim > bestSim {
				bestSim = sim
				bestIdx = i
			}
		}
		current = remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		ordered = append(ordered, current.ItemID)
	}

	return ordered
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
