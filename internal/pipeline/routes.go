package pipeline

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/Benny93/roadnet-go/internal/geom"
	"github.com/Benny93/roadnet-go/internal/graph"
)

var (
	// ErrNodeNotFound is returned when a route endpoint is not a node of the
	// graph.
	ErrNodeNotFound = errors.New("pipeline: node not found")

	// ErrNoRoute is returned when the endpoints lie in different districts.
	ErrNoRoute = errors.New("pipeline: no route between nodes")
)

// Route is a shortest path along the road graph.
type Route struct {
	Nodes  []graph.NodeID   `json:"nodes"`
	Edges  []graph.HalfEdge `json:"edges"`
	Length float64          `json:"length"`
}

// Points returns the polyline of the route from its first to its last node.
func (r *Route) Points(g *graph.Graph) []geom.Vec2 {
	var points []geom.Vec2
	for _, h := range r.Edges {
		walk := g.Edge(h.Edge).Walk(h.Reversed)
		if len(points) > 0 {
			walk = walk[1:]
		}
		points = append(points, walk...)
	}
	if points == nil && len(r.Nodes) == 1 {
		points = []geom.Vec2{g.Node(r.Nodes[0]).Position}
	}
	return points
}

// ShortestRoute finds the shortest route between two nodes, weighting every
// edge by its polyline length.
//
// Dijkstra with a lazy decrease-key heap: improved distances push a new entry
// and stale entries are skipped when popped. Among routes of equal length the
// one found first in incident order wins, so results are deterministic.
func ShortestRoute(g *graph.Graph, from, to graph.NodeID) (*Route, error) {
	if g.Node(from) == nil {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, from)
	}
	if g.Node(to) == nil {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, to)
	}

	n := g.NodeCount()
	dist := make([]float64, n)
	prev := make([]graph.HalfEdge, n)
	hasPrev := make([]bool, n)
	done := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[from] = 0

	pq := routePQ{{node: from}}
	heap.Init(&pq)
	for pq.Len() > 0 {
		item := heap.Pop(&pq).(routeItem)
		if done[item.node] {
			continue
		}
		done[item.node] = true
		if item.node == to {
			break
		}

		for _, h := range g.Node(item.node).Incident {
			e := g.Edge(h.Edge)
			next := e.Other(item.node)
			if done[next] {
				continue
			}
			d := dist[item.node] + e.Length()
			if d < dist[next] {
				dist[next] = d
				prev[next] = h
				hasPrev[next] = true
				heap.Push(&pq, routeItem{node: next, dist: d})
			}
		}
	}

	if math.IsInf(dist[to], 1) {
		return nil, fmt.Errorf("%w: %d to %d", ErrNoRoute, from, to)
	}

	route := &Route{Nodes: []graph.NodeID{to}, Edges: []graph.HalfEdge{}, Length: dist[to]}
	for at := to; at != from; {
		if !hasPrev[at] {
			return nil, fmt.Errorf("%w: broken predecessor chain at %d", graph.ErrCorrupt, at)
		}
		h := prev[at]
		at = g.Edge(h.Edge).Other(at)
		route.Edges = append(route.Edges, h)
		route.Nodes = append(route.Nodes, at)
	}
	reverseInPlace(route.Nodes)
	reverseInPlace(route.Edges)
	return route, nil
}

func reverseInPlace[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

type routeItem struct {
	node graph.NodeID
	dist float64
}

// routePQ is a min-heap of routeItem ordered by distance, then node handle.
type routePQ []routeItem

func (pq routePQ) Len() int { return len(pq) }

func (pq routePQ) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].node < pq[j].node
}

func (pq routePQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *routePQ) Push(x any) { *pq = append(*pq, x.(routeItem)) }

func (pq *routePQ) Pop() any {
	old := *pq
	item := old[len(old)-1]
	*pq = old[:len(old)-1]
	return item
}
