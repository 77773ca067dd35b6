package deduplication

// disjointSet is an arena union-find over dense indices with path
// compression and union by size.
type disjointSet struct {
	parent []int32
	size   []int32
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{
		parent: make([]int32, n),
		size:   make([]int32, n),
	}
	for i := range d.parent {
		d.parent[i] = int32(i)
		d.size[i] = 1
	}
	return d
}

func (d *disjointSet) find(i int32) int32 {
	root := i
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[i] != root {
		next := d.parent[i]
		d.parent[i] = root
		i = next
	}
	return root
}

func (d *disjointSet) union(a, b int32) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// groups returns the members of each set, ordered by their lowest index.
// Members within a set keep ascending index order.
func (d *disjointSet) groups() [][]int32 {
	byRoot := make(map[int32]int, len(d.parent))
	var out [][]int32
	for i := range d.parent {
		root := d.find(int32(i))
		idx, ok := byRoot[root]
		if !ok {
			idx = len(out)
			byRoot[root] = idx
			out = append(out, nil)
		}
		out[idx] = append(out[idx], int32(i))
	}
	return out
}
