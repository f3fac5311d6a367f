package fieldmesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh/internal/d3"
)

// Mesh is an extracted polygon mesh ready for smoothing.
type Mesh struct {
	// Faces holds vertex indices, all faces share the same arity.
	Faces     [][]int
	Positions []r3.Vec
	// Normals is either empty, disabling normal propagation,
	// or holds one unit normal per position.
	Normals []r3.Vec
}

// PassStats summarizes one relaxation pass.
type PassStats struct {
	// Moved is the number of vertices relaxed, that is,
	// neither crease vertices nor isolated.
	Moved int
	// Reprojected is the number of relaxed vertices snapped
	// onto the reference surface.
	Reprojected int
	// MeanShift and MaxShift are the mean and maximum position
	// change of the relaxed vertices.
	MeanShift float64
	MaxShift  float64
}

// Result holds smoothed vertex data. Shapes match the input.
type Result struct {
	Positions []r3.Vec
	// Normals is nil when the input had no normals.
	Normals []r3.Vec
	// Variation is the surface variation of each vertex's neighborhood
	// during the last pass. It is only set when Parms.Variation is true.
	// Fixed vertices and zero iteration runs report 0.
	Variation []float64
	Stats     []PassStats
}

// Smooth builds the mesh's 1-ring adjacency and relaxes its vertices for
// parms.Iterations passes. Each pass moves every free vertex to the centroid
// of its neighbors, fits a plane to the neighborhood for the new normal and,
// if parms.Oracle holds a surface, snaps the centroid onto the surface along
// the normal when a hit lies within parms.Scale/2.
//
// The input mesh is not modified. On error no result is returned.
func Smooth(m Mesh, parms Parms) (Result, error) {
	parms.defaults()
	if err := parms.validate(); err != nil {
		return Result{}, err
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return Result{}, fmt.Errorf("%w: %d normals for %d positions", ErrNormalCount, len(m.Normals), len(m.Positions))
	}
	adj, err := BuildAdjacency(m.Faces, len(m.Positions), parms)
	if err != nil {
		return Result{}, err
	}
	return Relax(m.Positions, m.Normals, adj, parms)
}

// Relax runs parms.Iterations relaxation passes over positions and normals
// using a prebuilt adjacency. See Smooth.
//
// Every pass reads only the previous pass's output and writes a separate
// buffer, so vertices may be processed in any order and on any number of
// goroutines with identical results.
//
// When normals are tracked the fitted normal is oriented to agree with the
// sum of the vertex's and its neighbors' normals; a zero agreement keeps the
// fitted sign. Without normals the sign is chosen so the largest magnitude
// component is positive. Degenerate neighborhoods fall back to the previous
// normal when tracked, else to the vertex's offset from the centroid, else +Z.
func Relax(positions, normals []r3.Vec, adj Adjacency, parms Parms) (Result, error) {
	parms.defaults()
	if err := parms.validate(); err != nil {
		return Result{}, err
	}
	nV := len(positions)
	if len(adj) != nV {
		return Result{}, fmt.Errorf("adjacency has %d vertices, want %d", len(adj), nV)
	}
	if len(normals) != 0 && len(normals) != nV {
		return Result{}, fmt.Errorf("%w: %d normals for %d positions", ErrNormalCount, len(normals), nV)
	}
	e := engine{
		adj:         adj,
		parms:       &parms,
		withNormals: len(normals) > 0,
		reproject:   usableOracle(parms.Oracle),
	}
	if parms.Oracle != nil && !e.reproject && parms.Iterations > 0 {
		Logger().Info("reference surface empty, reprojection disabled")
	}
	cur := newBuffers(nV, e.withNormals)
	copy(cur.O, positions)
	copy(cur.N, normals)
	next := newBuffers(nV, e.withNormals)
	res := Result{Stats: make([]PassStats, 0, parms.Iterations)}
	if parms.Variation {
		res.Variation = make([]float64, nV)
	}
	for it := 0; it < parms.Iterations; it++ {
		if err := e.pass(cur, next, res.Variation); err != nil {
			return Result{}, err
		}
		stats := e.stats(cur, next)
		res.Stats = append(res.Stats, stats)
		Logger().Debug("smoothing pass", "iteration", it+1, "moved", stats.Moved,
			"reprojected", stats.Reprojected, "meanShift", stats.MeanShift, "maxShift", stats.MaxShift)
		// The output of this pass is the frozen input of the next one.
		cur, next = next, cur
	}
	if bad := countNonFinite(cur.O); bad > 0 {
		Logger().Warn("non-finite smoothed positions", "count", bad)
	}
	res.Positions = cur.O
	if e.withNormals {
		res.Normals = cur.N
	}
	Logger().Info("smoothing done", "vertices", nV, "iterations", parms.Iterations,
		"normals", e.withNormals, "reprojection", e.reproject)
	return res, nil
}

// buffers is one side of the double buffer.
type buffers struct {
	O, N []r3.Vec
	// reprojected marks vertices snapped to the reference surface.
	reprojected []bool
	// relaxed marks vertices that were neither fixed nor isolated.
	relaxed []bool
}

func newBuffers(nV int, withNormals bool) *buffers {
	b := &buffers{
		O:           make([]r3.Vec, nV),
		reprojected: make([]bool, nV),
		relaxed:     make([]bool, nV),
	}
	if withNormals {
		b.N = make([]r3.Vec, nV)
	}
	return b
}

type engine struct {
	adj         Adjacency
	parms       *Parms
	withNormals bool
	reproject   bool
}

// pass relaxes every vertex of cur into next.
func (e *engine) pass(cur, next *buffers, variation []float64) error {
	return parallelFor(len(cur.O), e.parms.Grain, e.parms.Workers, func(start, end int) error {
		pf := newPlaneFitter()
		for i := start; i < end; i++ {
			v := e.relaxVertex(pf, i, cur, next)
			if variation != nil {
				variation[i] = v
			}
		}
		return nil
	})
}

// relaxVertex writes vertex i's relaxed state into next reading only cur.
// It returns the surface variation of the vertex's neighborhood.
func (e *engine) relaxVertex(pf *planeFitter, i int, cur, next *buffers) (variation float64) {
	nbrs := e.adj[i]
	next.reprojected[i] = false
	next.relaxed[i] = false
	if len(nbrs) == 0 || e.parms.isCrease(i) {
		next.O[i] = cur.O[i]
		if e.withNormals {
			next.N[i] = cur.N[i]
		}
		return 0
	}
	var centroid, avgNormal r3.Vec
	for _, j := range nbrs {
		centroid = r3.Add(centroid, cur.O[j])
		if e.withNormals {
			avgNormal = r3.Add(avgNormal, cur.N[j])
		}
	}
	centroid = r3.Scale(1/float64(len(nbrs)), centroid)

	n, variation, ok := pf.fit(cur.O, nbrs, centroid)
	if !ok {
		n = e.fallbackNormal(i, cur, centroid)
	}
	if e.withNormals {
		avgNormal = r3.Add(avgNormal, cur.N[i])
		if r3.Dot(avgNormal, n) < 0 {
			n = r3.Scale(-1, n)
		}
	} else {
		n = canonical(n)
	}

	if e.reproject {
		if p, hit := e.reprojectPoint(centroid, n); hit {
			centroid = p
			next.reprojected[i] = true
		}
	}
	next.O[i] = centroid
	if e.withNormals {
		next.N[i] = n
	}
	next.relaxed[i] = true
	return variation
}

// reprojectPoint casts two rays of length Scale/2 from c along +n and -n
// and returns the closest hit. On equal distances the +n hit wins.
func (e *engine) reprojectPoint(c, n r3.Vec) (r3.Vec, bool) {
	half := e.parms.Scale / 2
	t1, t2 := math.Inf(1), math.Inf(1)
	h1, ok1 := e.parms.Oracle.Intersect(Ray{Origin: c, Dir: n, MaxT: half})
	if ok1 {
		t1 = h1.T
	}
	h2, ok2 := e.parms.Oracle.Intersect(Ray{Origin: c, Dir: r3.Scale(-1, n), MaxT: half})
	if ok2 {
		t2 = h2.T
	}
	if math.Min(t1, t2) >= e.parms.Scale*0.5 {
		return c, false
	}
	if t1 <= t2 {
		return h1.Point, true
	}
	return h2.Point, true
}

func (e *engine) fallbackNormal(i int, cur *buffers, centroid r3.Vec) r3.Vec {
	if e.withNormals {
		if l := r3.Norm(cur.N[i]); l > 0 {
			return r3.Scale(1/l, cur.N[i])
		}
	}
	if d := r3.Sub(cur.O[i], centroid); r3.Norm(d) > 0 {
		return r3.Unit(d)
	}
	return r3.Vec{Z: 1}
}

// stats summarizes the pass that turned cur into next.
func (e *engine) stats(cur, next *buffers) (s PassStats) {
	var sum float64
	for i := range next.O {
		if !next.relaxed[i] {
			continue
		}
		s.Moved++
		if next.reprojected[i] {
			s.Reprojected++
		}
		shift := r3.Norm(r3.Sub(next.O[i], cur.O[i]))
		sum += shift
		s.MaxShift = math.Max(s.MaxShift, shift)
	}
	if s.Moved > 0 {
		s.MeanShift = sum / float64(s.Moved)
	}
	return s
}

func countNonFinite(vs []r3.Vec) (n int) {
	for _, v := range vs {
		if !d3.IsFinite(v) {
			n++
		}
	}
	return n
}
