package rank

import (
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/nao1215/linkrank/internal/model"
)

// ReferenceTolerance is the 2-norm tolerance passed to gonum.
const ReferenceTolerance = 1e-10

// Reference computes PageRank with gonum's network.PageRankSparse.
//
// gonum treats dangling pages the same way Transition does, so the result
// agrees with Iterate up to the two tolerances. It is used to cross-check
// the in-house estimators and is not a replacement for them: gonum starts
// from a random vector and stops on a 2-norm criterion.
func Reference(g *model.Graph, d float64) (model.Distribution, error) {
	if err := validateGraph(g); err != nil {
		return nil, err
	}
	if err := ValidateDamping(d); err != nil {
		return nil, err
	}

	dg := simple.NewDirectedGraph()
	for i := range g.Len() {
		dg.AddNode(simple.Node(i))
	}
	for i := range g.Len() {
		for _, j := range g.OutIndexes(i) {
			dg.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
		}
	}

	weights := network.PageRankSparse(dg, d, ReferenceTolerance)

	ranks := make([]float64, g.Len())
	for id, w := range weights {
		ranks[id] = w
	}
	return model.NewDistribution(g, ranks), nil
}
