package rank

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/nao1215/linkrank/internal/model"
)

// TestSample tests the random-surfer estimator.
func TestSample(t *testing.T) {
	t.Parallel()

	t.Run("returns one entry per page summing to one", func(t *testing.T) {
		t.Parallel()

		g := cycleWithDangling(t)
		dist, err := Sample(g, 0.85, 1000, WithSeed(1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(dist) != g.Len() {
			t.Errorf("expected %d entries, got %d", g.Len(), len(dist))
		}
		assertClose(t, "sum", dist.Sum(), 1, 1e-9)
	})

	t.Run("single page gets all the mass", func(t *testing.T) {
		t.Parallel()

		g := mustGraph(t, map[model.PageID][]model.PageID{"A": {}})
		for _, n := range []int{1, 7, 1000} {
			dist, err := Sample(g, 0.85, n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dist["A"] != 1.0 {
				t.Errorf("expected exactly 1.0 for n=%d, got %v", n, dist["A"])
			}
		}
	})

	t.Run("same seed gives same estimate", func(t *testing.T) {
		t.Parallel()

		g := cycleWithDangling(t)
		first, err := Sample(g, 0.85, 5000, WithSeed(42))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := Sample(g, 0.85, 5000, WithSource(rand.NewPCG(42, 42)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := first.MaxDiff(second); diff != 0 {
			t.Errorf("expected identical estimates, got max difference %v", diff)
		}
	})

	t.Run("agrees with iteration across seeds", func(t *testing.T) {
		t.Parallel()

		g := cycleWithDangling(t)
		exact, err := Iterate(g, 0.85)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, seed := range []uint64{1, 7, 2024, 99991} {
			est, err := Sample(g, 0.85, 100000, WithSeed(seed))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, p := range g.Pages() {
				assertClose(t, string(p), est[p], exact[p], 0.02)
			}
		}
	})

	t.Run("rejects invalid arguments", func(t *testing.T) {
		t.Parallel()

		g := cycleWithDangling(t)

		if _, err := Sample(g, 0.85, 0); !errors.Is(err, model.ErrInvalidSamples) {
			t.Errorf("expected ErrInvalidSamples, got %v", err)
		}
		if _, err := Sample(g, 1, 10); !errors.Is(err, model.ErrInvalidDamping) {
			t.Errorf("expected ErrInvalidDamping, got %v", err)
		}
		if _, err := Sample(nil, 0.85, 10); !errors.Is(err, model.ErrInvalidGraph) {
			t.Errorf("expected ErrInvalidGraph, got %v", err)
		}
	})

	t.Run("does not modify the graph", func(t *testing.T) {
		t.Parallel()

		g := cycleWithDangling(t)
		before := g.Links("4.html")
		if _, err := Sample(g, 0.85, 1000, WithSeed(3)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		after := g.Links("4.html")
		if len(before) != len(after) || g.LinkCount() != 5 {
			t.Errorf("graph changed: links before %v, after %v", before, after)
		}
	})
}
