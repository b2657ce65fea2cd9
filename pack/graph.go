package pack

import (
	"gonum.org/v1/gonum/graph/simple"
)

// ToWeighted adapts g into a gonum weighted undirected graph, node IDs
// equal to sphere indices, so embed can run gonum's Dijkstra over the
// packed-sphere proximity graph without reimplementing shortest paths.
func (g *Graph) ToWeighted() *simple.WeightedUndirectedGraph {
	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range g.Spheres {
		wg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges {
		wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(int64(e.A)), simple.Node(int64(e.B)), e.Length))
	}
	return wg
}
