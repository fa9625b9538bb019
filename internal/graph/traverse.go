package graph

import "container/heap"

// matchesType returns true if an edge of type edgeType should be followed
// under filter. An empty filter means "follow everything."
func matchesType(edgeType, filter string) bool {
	return filter == "" || edgeType == filter
}

// filteredNeighbors resolves each neighbor's edge type (GetEdge if a filter
// is set) and keeps only those matching typeFilter.
func (m *Manager) filteredNeighbors(graphID, from, typeFilter string) ([]Neighbor, error) {
	ns, err := m.OutNeighbors(graphID, from)
	if err != nil {
		return nil, err
	}
	if typeFilter == "" {
		return ns, nil
	}
	var out []Neighbor
	for _, n := range ns {
		e, err := m.GetEdge(n.EdgeID)
		if err != nil {
			return nil, err
		}
		if matchesType(e.Type, typeFilter) {
			out = append(out, n)
		}
	}
	return out, nil
}

// BFS visits nodes reachable from start up to maxDepth hops, optionally
// following only edges of typeFilter, and returns them in visit order.
func (m *Manager) BFS(graphID, start string, maxDepth int, typeFilter string) ([]string, error) {
	visited := map[string]bool{start: true}
	order := []string{start}
	frontier := []string{start}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			neighbors, err := m.filteredNeighbors(graphID, node, typeFilter)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n.Node] {
					continue
				}
				visited[n.Node] = true
				order = append(order, n.Node)
				next = append(next, n.Node)
			}
		}
		frontier = next
	}
	return order, nil
}

type pqItem struct {
	node string
	cost float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	return pq[i].node < pq[j].node // deterministic tie-break on equal cost
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)    { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// Dijkstra returns the minimum-cost path from start to target, following
// only typeFilter edges if set. Edge cost is _weight if set, else 1.0.
func (m *Manager) Dijkstra(graphID, start, target, typeFilter string) ([]string, float64, error) {
	return m.aStar(graphID, start, target, typeFilter, func(string) float64 { return 0 })
}

// AStar is Dijkstra with an admissible heuristic added to the priority
// ordering (f = g + h). A nil heuristic degenerates to Dijkstra.
func (m *Manager) AStar(graphID, start, target, typeFilter string, heuristic func(node string) float64) ([]string, float64, error) {
	if heuristic == nil {
		heuristic = func(string) float64 { return 0 }
	}
	return m.aStar(graphID, start, target, typeFilter, heuristic)
}

func (m *Manager) aStar(graphID, start, target, typeFilter string, heuristic func(string) float64) ([]string, float64, error) {
	dist := map[string]float64{start: 0}
	prev := map[string]string{}
	visited := map[string]bool{}

	pq := &priorityQueue{{node: start, cost: heuristic(start)}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == target {
			return reconstructPath(prev, start, target), dist[target], nil
		}

		neighbors, err := m.filteredNeighbors(graphID, cur.node, typeFilter)
		if err != nil {
			return nil, 0, err
		}
		for _, n := range neighbors {
			e, err := m.GetEdge(n.EdgeID)
			if err != nil {
				return nil, 0, err
			}
			g := dist[cur.node] + e.weightOrDefault()
			if existing, ok := dist[n.Node]; !ok || g < existing {
				dist[n.Node] = g
				prev[n.Node] = cur.node
				heap.Push(pq, pqItem{node: n.Node, cost: g + heuristic(n.Node)})
			}
		}
	}
	return nil, 0, ErrNoSuchPath
}

func reconstructPath(prev map[string]string, start, target string) []string {
	path := []string{target}
	cur := target
	for cur != start {
		p, ok := prev[cur]
		if !ok {
			break
		}
		path = append([]string{p}, path...)
		cur = p
	}
	return path
}
