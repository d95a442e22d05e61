package rank

import (
	"errors"
	"testing"

	"github.com/nao1215/linkrank/internal/model"
)

// TestReference tests the gonum-backed estimator against Iterate.
func TestReference(t *testing.T) {
	t.Parallel()

	t.Run("agrees with iteration", func(t *testing.T) {
		t.Parallel()

		graphs := map[string]*model.Graph{
			"cycle with dangling": cycleWithDangling(t),
			"two pages": mustGraph(t, map[model.PageID][]model.PageID{
				"A": {},
				"B": {"A"},
			}),
			"single page": mustGraph(t, map[model.PageID][]model.PageID{"A": {}}),
		}

		for name, g := range graphs {
			want, err := Iterate(g, 0.85, WithThreshold(1e-9))
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", name, err)
			}
			got, err := Reference(g, 0.85)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", name, err)
			}
			if len(got) != g.Len() {
				t.Errorf("%s: expected %d entries, got %d", name, g.Len(), len(got))
			}
			if diff := got.MaxDiff(want); diff > 1e-6 {
				t.Errorf("%s: expected agreement within 1e-6, got %v", name, diff)
			}
		}
	})

	t.Run("rejects invalid arguments", func(t *testing.T) {
		t.Parallel()

		if _, err := Reference(nil, 0.85); !errors.Is(err, model.ErrInvalidGraph) {
			t.Errorf("expected ErrInvalidGraph, got %v", err)
		}
		if _, err := Reference(cycleWithDangling(t), 1.2); !errors.Is(err, model.ErrInvalidDamping) {
			t.Errorf("expected ErrInvalidDamping, got %v", err)
		}
	})
}
