package graph

// Edge is a single follower -> followed pair.
type Edge struct {
	Follower string
	Followed string
}

// Edges returns every edge ordered by follower, then followed.
func (s *MemorySet) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []Edge
	for _, a := range sortedKeys(s.out) {
		for _, b := range sortedKeys(s.out[a]) {
			edges = append(edges, Edge{Follower: a, Followed: b})
		}
	}
	return edges
}
