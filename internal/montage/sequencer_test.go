package montage

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

func TestOrderGreedyTour(t *testing.T) {
	a := ItemEmbedding{ItemID: uuid.New(), Vector: FeatureVector{1, 0}}
	b := ItemEmbedding{ItemID: uuid.New(), Vector: FeatureVector{0.9, 0.1}}
	c := ItemEmbedding{ItemID: uuid.New(), Vector: FeatureVector{0, 1}}

	// Seeded at a, b is the closer neighbor, c closes the tour.
	got := Order([]ItemEmbedding{a, b, c})
	want := []uuid.UUID{a.ItemID, b.ItemID, c.ItemID}
	if len(got) != len(want) {
		t.Fatalf("got %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOrderDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := make([]ItemEmbedding, 12)
	for i := range items {
		vec := make(FeatureVector, 8)
		for j := range vec {
			vec[j] = rng.Float32()*2 - 1
		}
		items[i] = ItemEmbedding{ItemID: uuid.New(), Vector: vec}
	}

	first := Order(items)
	for run := 0; run < 5; run++ {
		again := Order(items)
		if len(again) != len(first) {
			t.Fatalf("run %d: got %d ids, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: position %d differs", run, i)
			}
		}
	}
}

func TestOrderIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := make([]ItemEmbedding, 20)
	for i := range items {
		vec := make(FeatureVector, 4)
		for j := range vec {
			vec[j] = rng.Float32()
		}
		items[i] = ItemEmbedding{ItemID: uuid.New(), Vector: vec}
	}

	got := Order(items)
	if len(got) != len(items) {
		t.Fatalf("got %d ids, want %d", len(got), len(items))
	}
	seen := make(map[uuid.UUID]bool, len(got))
	for _, id := range got {
		if seen[id] {
			t.Fatalf("id %s appears twice", id)
		}
		seen[id] = true
	}
	for _, item := range items {
		if !seen[item.ItemID] {
			t.Fatalf("id %s missing from tour", item.ItemID)
		}
	}
}

func TestOrderSkipsItemsWithoutVectors(t *testing.T) {
	withVec := ItemEmbedding{ItemID: uuid.New(), Vector: FeatureVector{1, 0}}
	excluded := ItemEmbedding{ItemID: uuid.New(), ExcludedReason: ExcludedEmbeddingFailed}

	got := Order([]ItemEmbedding{excluded, withVec})
	if len(got) != 1 {
		t.Fatalf("got %d ids, want 1", len(got))
	}
	if got[0] != withVec.ItemID {
		t.Fatalf("got %s, want %s", got[0], withVec.ItemID)
	}
}

func TestOrderEmpty(t *testing.T) {
	if got := Order(nil); len(got) != 0 {
		t.Fatalf("got %d ids, want 0", len(got))
	}
}

func TestOrderSingle(t *testing.T) {
	only := ItemEmbedding{ItemID: uuid.New(), Vector: FeatureVector{0.5, 0.5}}
	got := Order([]ItemEmbedding{only})
	if len(got) != 1 || got[0] != only.ItemID {
		t.Fatalf("got %v, want [%s]", got, only.ItemID)
	}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b FeatureVector
		want float64
	}{
		{"identical", FeatureVector{1, 0}, FeatureVector{1, 0}, 1},
		{"orthogonal", FeatureVector{1, 0}, FeatureVector{0, 1}, 0},
		{"opposite", FeatureVector{1, 0}, FeatureVector{-1, 0}, -1},
		{"zero vector", FeatureVector{0, 0}, FeatureVector{1, 0}, 0},
	}
	for _, tc := range cases {
		got := cosine(tc.a, tc.b)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("%s: cosine = %v, want %v", tc.name, got, tc.want)
		}
	}
}
