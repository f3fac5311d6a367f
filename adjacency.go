package fieldmesh

import (
	"fmt"
	"sort"
	"sync"
)

// Adjacency is the 1-ring relation of a polygon mesh. Adjacency[i] lists the
// vertices sharing an edge with vertex i in ascending order. The relation is
// symmetric and contains no self loops. It is read-only once built.
type Adjacency [][]int

// Neighbors returns the 1-ring of vertex i.
func (adj Adjacency) Neighbors(i int) []int { return adj[i] }

// BuildAdjacency derives the 1-ring relation of nV vertices from faces.
// Every face must have exactly parms.PoSy corners. For quad runs a face whose
// last two indices are equal stands for a triangle: only its first two
// corners are connected, and if parms.PureQuad is set it is rejected with
// ErrIrregularFace. Faces are processed concurrently; on error no adjacency
// is returned.
func BuildAdjacency(faces [][]int, nV int, parms Parms) (Adjacency, error) {
	parms.defaults()
	if err := parms.validate(); err != nil {
		return nil, err
	}
	b := adjacencyBuilder{
		sets:  make([][]int, nV),
		locks: make([]sync.Mutex, nV),
	}
	err := parallelFor(len(faces), parms.Grain, parms.Workers, func(start, end int) error {
		for f := start; f < end; f++ {
			if err := b.addFace(faces[f], parms.PoSy, parms.PureQuad); err != nil {
				return &FaceError{Face: f, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range b.sets {
		sort.Ints(b.sets[i])
	}
	Logger().Debug("adjacency built", "vertices", nV, "faces", len(faces))
	return Adjacency(b.sets), nil
}

type adjacencyBuilder struct {
	sets  [][]int
	locks []sync.Mutex
}

func (b *adjacencyBuilder) addFace(face []int, posy int, pureQuad bool) error {
	if len(face) != posy {
		return fmt.Errorf("%w: got %d corners, want %d", ErrFaceArity, len(face), posy)
	}
	for _, v := range face {
		if v < 0 || v >= len(b.sets) {
			return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexRange, v, len(b.sets))
		}
	}
	if posy == 4 && face[2] == face[3] {
		if pureQuad {
			return ErrIrregularFace
		}
		// Triangle stored in quad form, connect the two distinct corners only.
		b.connect(face[0], face[1])
		return nil
	}
	for j := range face {
		b.connect(face[j], face[(j+1)%len(face)])
	}
	return nil
}

// connect inserts the undirected edge (i0,i1). Locks are acquired lowest
// index first so concurrent inserts over the same pair cannot deadlock.
func (b *adjacencyBuilder) connect(i0, i1 int) {
	if i0 == i1 {
		return
	}
	if i0 > i1 {
		i0, i1 = i1, i0
	}
	b.locks[i0].Lock()
	b.locks[i1].Lock()
	b.sets[i0] = insertUnique(b.sets[i0], i1)
	b.sets[i1] = insertUnique(b.sets[i1], i0)
	b.locks[i1].Unlock()
	b.locks[i0].Unlock()
}

// insertUnique appends v to set if not yet present. 1-rings are small
// so a linear scan beats a map.
func insertUnique(set []int, v int) []int {
	for _, existing := range set {
		if existing == v {
			return set
		}
	}
	return append(set, v)
}
