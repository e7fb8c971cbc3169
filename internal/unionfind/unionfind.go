// Package unionfind implements a disjoint-set structure with path-halving
// and union-by-rank. When two roots have equal rank the lower ordinal wins,
// so a union of two singletons always picks the lower ordinal. The partition
// is the same whatever order the unions arrive in; the representative of a
// larger set can depend on that order (unions (0,1) then (1,2) give root 0,
// the reverse order gives root 1).
package unionfind

// UnionFind tracks n disjoint sets over the ordinals [0, n).
type UnionFind struct {
	parent []int
	rank   []uint8
}

// New creates n singleton sets.
func New(n int) *UnionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &UnionFind{parent: parent, rank: make([]uint8, n)}
}

// Find returns the representative of the set containing x, halving the path
// as it walks: each visited element is repointed at its grandparent.
func (u *UnionFind) Find(x int) int {
	for u.parent[x] != x {
		grandparent := u.parent[u.parent[x]]
		u.parent[x] = grandparent
		x = grandparent
	}
	return x
}

// Union merges the sets containing a and b. On a rank tie the lower ordinal
// becomes the new root.
func (u *UnionFind) Union(a, b int) {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	case ra < rb:
		u.parent[rb] = ra
		u.rank[ra]++
	default:
		u.parent[ra] = rb
		u.rank[rb]++
	}
}

// Len returns the number of elements.
func (u *UnionFind) Len() int { return len(u.parent) }
