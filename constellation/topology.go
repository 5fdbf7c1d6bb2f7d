package constellation

// TopologicalOrder returns node ids in topological order over the DAG with
// loop edges excluded (§4.1). Start is first, End is last.
//
// Grounded on execution/models/constellation.py's topological_sort
// (Kahn's algorithm with phase grouping), adapted to a flat node-id slice
// since the runtime executes one node at a time within a wave (§4.6.1) and
// only the fan-out entrypoint (§4.6.2) needs the sibling grouping, which it
// derives separately from shared-upstream analysis rather than from phases.
func (c *Constellation) TopologicalOrder() []string {
	ids := make([]string, 0, len(c.Nodes)+2)
	ids = append(ids, c.Start.ID)
	for _, n := range c.Nodes {
		ids = append(ids, n.ID)
	}
	ids = append(ids, c.End.ID)

	inDegree := make(map[string]int, len(ids))
	adjacency := make(map[string][]string, len(ids))
	for _, id := range ids {
		inDegree[id] = 0
		adjacency[id] = nil
	}

	for _, e := range c.Edges {
		if e.IsLoopEdge() {
			continue
		}
		if _, ok := inDegree[e.Target]; !ok {
			continue
		}
		if _, ok := adjacency[e.Source]; !ok {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		inDegree[e.Target]++
	}

	// Kahn's algorithm, starting deterministically from Start.
	visited := make(map[string]bool, len(ids))
	var order []string
	queue := []string{c.Start.ID}
	visited[c.Start.ID] = true

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id != c.End.ID {
			order = append(order, id)
		}

		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] <= 0 && !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	// Any node not reached via the forward walk (e.g. only reachable
	// through a loop edge) is appended before End so it still executes at
	// least once; End must remain last.
	for _, id := range ids {
		if id != c.End.ID && !visited[id] {
			order = append(order, id)
		}
	}
	order = append(order, c.End.ID)

	return order
}

// GetUpstreamNodes returns the immediate predecessors of nodeID (loop edges
// excluded — they aren't part of the forward-traversal upstream set).
func (c *Constellation) GetUpstreamNodes(nodeID string) []Node {
	var result []Node
	for _, e := range c.Edges {
		if e.IsLoopEdge() || e.Target != nodeID {
			continue
		}
		if n, ok := c.GetNode(e.Source); ok {
			result = append(result, n)
		}
	}
	return result
}

// GetDownstreamNodes returns the immediate successors of nodeID (loop edges
// excluded).
func (c *Constellation) GetDownstreamNodes(nodeID string) []Node {
	var result []Node
	for _, e := range c.Edges {
		if e.IsLoopEdge() || e.Source != nodeID {
			continue
		}
		if n, ok := c.GetNode(e.Target); ok {
			result = append(result, n)
		}
	}
	return result
}

// LoopEdgeTarget returns the target of the first outgoing edge of nodeID
// whose condition contains "loop" (case-insensitive), per §4.6.3 step 3.
func (c *Constellation) LoopEdgeTarget(nodeID string) (string, bool) {
	for _, e := range c.Edges {
		if e.Source == nodeID && e.IsLoopEdge() {
			return e.Target, true
		}
	}
	return "", false
}

// FirstStarOfType returns the first StarNode in Nodes order whose Star type
// matches, used as the fallback loop target when no loop edge exists
// (§4.6.3 step 3: "first whose Star is of type Planning").
func (c *Constellation) FirstStarOfType(starType StarType, stars map[string]Star) (Node, bool) {
	for _, n := range c.Nodes {
		if n.Kind != KindStar {
			continue
		}
		if s, ok := stars[n.StarID]; ok && s.Type == starType {
			return n, true
		}
	}
	return Node{}, false
}

// DownstreamClosure returns every node id reachable from nodeID by
// following GetDownstreamNodes transitively, computed with an explicit
// worklist (§9 design note: avoid recursion on deep graphs) instead of
// recursion-with-visited-set.
func (c *Constellation) DownstreamClosure(nodeID string) []string {
	visited := map[string]bool{nodeID: true}
	var result []string
	stack := []string{nodeID}

	for len(stack) > 0 {
		n := len(stack) - 1
		current := stack[n]
		stack = stack[:n]

		for _, child := range c.GetDownstreamNodes(current) {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			result = append(result, child.ID)
			stack = append(stack, child.ID)
		}
	}

	return result
}
