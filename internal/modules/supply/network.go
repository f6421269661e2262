package supply

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// NodeMetrics are the centrality measures for one node, with degrees weighted
// by dependency strength.
type NodeMetrics struct {
	Node        string  `json:"node"`
	Country     string  `json:"country"`
	Role        string  `json:"role"`
	Degree      float64 `json:"degree"`
	InDegree    float64 `json:"in_degree"`
	OutDegree   float64 `json:"out_degree"`
	Betweenness float64 `json:"betweenness"`
}

type nodeAttrs struct {
	country string
	role    string
}

// Network is the directed dependency graph with node attributes.
type Network struct {
	graph *simple.WeightedDirectedGraph
	ids   map[string]int64
	names map[int64]string
	attrs map[string]*nodeAttrs
	edges []Edge
}

// BuildNetwork assembles the graph from an edge list. Suppliers carry the
// edge's country; a node seen only as customer keeps country Unknown. Role
// reflects the node's last appearance in the list.
func BuildNetwork(edges []Edge) *Network {
	n := &Network{
		graph: simple.NewWeightedDirectedGraph(0, 0),
		ids:   make(map[string]int64),
		names: make(map[int64]string),
		attrs: make(map[string]*nodeAttrs),
		edges: edges,
	}

	for _, e := range edges {
		supplier := n.ensureNode(e.Supplier)
		customer := n.ensureNode(e.Customer)

		n.attrs[e.Supplier].country = e.Country
		n.attrs[e.Supplier].role = "supplier"
		n.attrs[e.Customer].role = "customer"

		if e.Supplier != e.Customer {
			n.graph.SetWeightedEdge(simple.WeightedEdge{
				F: simple.Node(supplier),
				T: simple.Node(customer),
				W: e.Weight,
			})
		}
	}
	return n
}

func (n *Network) ensureNode(name string) int64 {
	if id, ok := n.ids[name]; ok {
		return id
	}
	id := int64(len(n.ids))
	n.ids[name] = id
	n.names[id] = name
	n.attrs[name] = &nodeAttrs{country: "Unknown", role: "unknown"}
	n.graph.AddNode(simple.Node(id))
	return id
}

// NodeCount returns the number of distinct nodes.
func (n *Network) NodeCount() int {
	return len(n.ids)
}

// Metrics computes weighted degrees and normalized betweenness centrality
// for every node, sorted by betweenness descending.
func (n *Network) Metrics() []NodeMetrics {
	betweenness := network.BetweennessWeighted(n.graph, path.DijkstraAllPaths(n.graph))

	// Directed normalization: each node can sit between (n-1)(n-2)
	// ordered pairs of other nodes.
	count := float64(n.NodeCount())
	norm := (count - 1) * (count - 2)

	inDeg := make(map[string]float64)
	outDeg := make(map[string]float64)
	for _, e := range n.edges {
		outDeg[e.Supplier] += e.Weight
		inDeg[e.Customer] += e.Weight
	}

	metrics := make([]NodeMetrics, 0, n.NodeCount())
	for name, id := range n.ids {
		b := betweenness[id]
		if norm > 0 {
			b /= norm
		}
		metrics = append(metrics, NodeMetrics{
			Node:        name,
			Country:     n.attrs[name].country,
			Role:        n.attrs[name].role,
			Degree:      inDeg[name] + outDeg[name],
			InDegree:    inDeg[name],
			OutDegree:   outDeg[name],
			Betweenness: b,
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Betweenness != metrics[j].Betweenness {
			return metrics[i].Betweenness > metrics[j].Betweenness
		}
		return metrics[i].Node < metrics[j].Node
	})
	return metrics
}

// Chokepoints returns the top n nodes by betweenness centrality.
func Chokepoints(metrics []NodeMetrics, n int) []NodeMetrics {
	if n > len(metrics) {
		n = len(metrics)
	}
	return metrics[:n]
}
