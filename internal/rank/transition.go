package rank

import (
	"fmt"

	"github.com/nao1215/linkrank/internal/model"
)

// Transition returns the probability distribution of the page a random
// surfer visits next when currently on page.
//
// If page has outbound links L, every page receives the teleport share
// (1-d)/N and each page of L additionally receives d/|L|. If page is
// dangling, every page receives 1/N. The result has one entry per page of
// g and sums to 1.
func Transition(g *model.Graph, page model.PageID, d float64) (model.Distribution, error) {
	if err := validateGraph(g); err != nil {
		return nil, err
	}
	if err := ValidateDamping(d); err != nil {
		return nil, err
	}
	i, ok := g.Index(page)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownPage, page)
	}

	weights := make([]float64, g.Len())
	transitionWeights(g, i, d, weights)
	return model.NewDistribution(g, weights), nil
}

// transitionWeights writes the transition distribution of page i into dst,
// which must have length g.Len(). It is the index-based form of Transition
// used on the sampling hot path; inputs are assumed valid.
func transitionWeights(g *model.Graph, i int, d float64, dst []float64) {
	n := float64(len(dst))
	links := g.OutIndexes(i)

	if len(links) == 0 {
		for k := range dst {
			dst[k] = 1 / n
		}
		return
	}

	teleport := (1 - d) / n
	for k := range dst {
		dst[k] = teleport
	}
	follow := d / float64(len(links))
	for _, j := range links {
		dst[j] += follow
	}
}
