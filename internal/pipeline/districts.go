package pipeline

import (
	"sort"

	"github.com/Benny93/roadnet-go/internal/graph"
)

// District is a connected component of the road graph.
type District struct {
	ID     int            `json:"id"`
	Nodes  []graph.NodeID `json:"nodes"`
	Edges  int            `json:"edges"`
	Length float64        `json:"length"`
}

// DetectDistricts splits the graph into connected components.
//
// Districts are ordered by node count, largest first; ties go to the district
// holding the smaller node handle. Node lists are sorted and district IDs
// follow the final order.
func DetectDistricts(g *graph.Graph) []District {
	component := make([]int, g.NodeCount())
	for i := range component {
		component[i] = -1
	}

	var districts []District
	for _, start := range g.Nodes() {
		if component[start.ID] >= 0 {
			continue
		}

		id := len(districts)
		component[start.ID] = id
		members := []graph.NodeID{start.ID}
		queue := []graph.NodeID{start.ID}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			for _, next := range g.Neighbors(n) {
				if component[next] >= 0 {
					continue
				}
				component[next] = id
				members = append(members, next)
				queue = append(queue, next)
			}
		}

		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		districts = append(districts, District{Nodes: members})
	}

	for _, e := range g.Edges() {
		d := &districts[component[e.From]]
		d.Edges++
		d.Length += e.Length()
	}

	sort.SliceStable(districts, func(i, j int) bool {
		if len(districts[i].Nodes) != len(districts[j].Nodes) {
			return len(districts[i].Nodes) > len(districts[j].Nodes)
		}
		return districts[i].Nodes[0] < districts[j].Nodes[0]
	})
	for i := range districts {
		districts[i].ID = i
	}

	if districts == nil {
		districts = []District{}
	}
	return districts
}
