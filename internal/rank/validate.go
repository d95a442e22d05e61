package rank

import (
	"fmt"
	"math"

	"github.com/nao1215/linkrank/internal/model"
)

// Default parameter values.
const (
	// DefaultDamping is the conventional PageRank damping factor.
	DefaultDamping = 0.85

	// DefaultSamples is the default random-walk length.
	DefaultSamples = 10000

	// DefaultThreshold is the default per-page convergence threshold.
	DefaultThreshold = 0.001
)

// ValidateDamping checks that d lies in the open interval (0, 1).
func ValidateDamping(d float64) error {
	if math.IsNaN(d) || d <= 0 || d >= 1 {
		return fmt.Errorf("%w: got %v", model.ErrInvalidDamping, d)
	}
	return nil
}

// ValidateSamples checks that n is positive.
func ValidateSamples(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: got %d", model.ErrInvalidSamples, n)
	}
	return nil
}

// ValidateThreshold checks that t is a positive finite number.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return fmt.Errorf("%w: got %v", model.ErrInvalidThreshold, t)
	}
	return nil
}

func validateGraph(g *model.Graph) error {
	if g == nil {
		return model.ErrNilGraph
	}
	if g.Len() == 0 {
		return model.ErrEmptyGraph
	}
	return nil
}
