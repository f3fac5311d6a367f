package bih

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh"
	"github.com/soypat/fieldmesh/internal/d3"
)

// Intersect returns the closest intersection of ray with the surface with
// parameter in [0, ray.MaxT]. Both triangle faces are hit.
func (t *Tree) Intersect(ray fieldmesh.Ray) (fieldmesh.Hit, bool) {
	if t.Empty() || !(ray.MaxT >= 0) {
		return fieldmesh.Hit{}, false
	}
	q := rayQuery{ray: ray, best: ray.MaxT, tri: -1}
	t.intersect(&q, 0, t.bb)
	if q.tri < 0 {
		return fieldmesh.Hit{}, false
	}
	return fieldmesh.Hit{T: q.best, Point: ray.At(q.best)}, true
}

type rayQuery struct {
	ray  fieldmesh.Ray
	best float64
	tri  int
}

func (t *Tree) intersect(q *rayQuery, idx int, bb d3.Box) {
	if _, _, ok := bb.IntersectRay(q.ray.Origin, q.ray.Dir, 0, q.best); !ok {
		return
	}
	n := &t.nodes[idx]
	if n.isLeaf() {
		for i := int(n.left); i < int(n.right); i++ {
			tHit, ok := t.triangle(i).IntersectRay(q.ray.Origin, q.ray.Dir)
			if ok && tHit >= 0 && tHit <= q.best {
				q.best = tHit
				q.tri = i
			}
		}
		return
	}
	leftBB, rightBB := childBoxes(n, bb)
	left := n.children()
	// visit the child nearest the ray origin first so the
	// far child is likely pruned by a closer hit.
	if d3.Comp(q.ray.Dir, n.axis()) >= 0 {
		t.intersect(q, left, leftBB)
		t.intersect(q, left+1, rightBB)
	} else {
		t.intersect(q, left+1, rightBB)
		t.intersect(q, left, leftBB)
	}
}

// Closest returns the point on the surface nearest to p provided it lies
// within maxDist of p. Pass math.Inf(1) for an unbounded search.
func (t *Tree) Closest(p r3.Vec, maxDist float64) (point r3.Vec, dist float64, ok bool) {
	if t.Empty() {
		return r3.Vec{}, math.Inf(1), false
	}
	q := nearestQuery{p: p, best2: maxDist * maxDist, tri: -1}
	t.nearest(&q, 0, t.bb)
	if q.tri < 0 {
		return r3.Vec{}, math.Inf(1), false
	}
	return q.closest, math.Sqrt(q.best2), true
}

type nearestQuery struct {
	p       r3.Vec
	best2   float64
	closest r3.Vec
	tri     int
}

func (t *Tree) nearest(q *nearestQuery, idx int, bb d3.Box) {
	n := &t.nodes[idx]
	if n.isLeaf() {
		for i := int(n.left); i < int(n.right); i++ {
			c := t.triangle(i).Closest(q.p)
			d2 := r3.Norm2(r3.Sub(q.p, c))
			if d2 <= q.best2 {
				q.best2 = d2
				q.closest = c
				q.tri = i
			}
		}
		return
	}
	// see which bounding box is closer to the target and
	// start with that one
	leftBB, rightBB := childBoxes(n, bb)
	left := n.children()
	leftD2, rightD2 := leftBB.Dist2(q.p), rightBB.Dist2(q.p)
	if leftD2 < rightD2 {
		if leftD2 <= q.best2 {
			t.nearest(q, left, leftBB)
		}
		if rightD2 <= q.best2 {
			t.nearest(q, left+1, rightBB)
		}
	} else {
		if rightD2 <= q.best2 {
			t.nearest(q, left+1, rightBB)
		}
		if leftD2 <= q.best2 {
			t.nearest(q, left, leftBB)
		}
	}
}
