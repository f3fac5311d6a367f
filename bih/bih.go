// Package bih implements a bounding interval hierarchy over a triangle
// surface. A Tree answers bounded ray and nearest point queries and
// satisfies fieldmesh.Oracle.
package bih

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh"
	"github.com/soypat/fieldmesh/internal/d3"
)

const (
	leaf = iota
	xClip
	yClip
	zClip
)

// maxLeafSize is the number of triangles below which a node is not split.
const maxLeafSize = 4

// minRelativeTol bounds an inferred weld tolerance from below as a
// fraction of the model size so grid keys stay within int64.
const minRelativeTol = 1e-9

type node struct {
	// offset to children is stored in the upper bits,
	// lower two bits hold the node kind.
	flags int
	// either:
	// - left and right clipping plane values as float64 bits
	// - or [start, end) indices into the triangle list for leaves.
	left, right uint64
}

func (n *node) isLeaf() bool       { return n.flags&3 == leaf }
func (n *node) axis() int          { return n.flags&3 - 1 }
func (n *node) children() int      { return n.flags >> 2 }
func (n *node) leftClip() float64  { return math.Float64frombits(n.left) }
func (n *node) rightClip() float64 { return math.Float64frombits(n.right) }

// Tree is a bounding interval hierarchy over an indexed triangle surface.
// It is immutable after construction and safe for concurrent queries.
type Tree struct {
	vertices []r3.Vec
	tris     [][3]int
	nodes    []node
	bb       d3.Box
}

var _ fieldmesh.Oracle = (*Tree)(nil)

// New builds a tree over the triangles tris whose corners index vertices.
// tris is not modified.
func New(vertices []r3.Vec, tris [][3]int) (*Tree, error) {
	for i, tri := range tris {
		for _, v := range tri {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("triangle %d: %w: %d", i, fieldmesh.ErrIndexRange, v)
			}
		}
	}
	t := &Tree{
		vertices: vertices,
		tris:     make([][3]int, len(tris)),
		bb:       d3.EmptyBox(),
	}
	copy(t.tris, tris)
	if len(tris) == 0 {
		return t, nil
	}
	centroids := make([]r3.Vec, len(tris))
	for i, tri := range t.tris {
		for _, v := range tri {
			t.bb = t.bb.Include(vertices[v])
		}
		centroids[i] = t.triangle(i).Centroid()
	}
	b := builder{tris: t.tris, centroids: centroids, vertices: vertices}
	t.nodes = make([]node, 1, 2*len(tris)/maxLeafSize+1)
	t.nodes = b.subdivide(t.nodes, 0, 0, len(tris), t.bb)
	fieldmesh.Logger().Debug("bih built", "triangles", len(tris), "nodes", len(t.nodes))
	return t, nil
}

// FromTriangles builds a tree from a triangle soup, sharing vertices that
// fall within vertexTol of each other. If vertexTol is zero it is inferred
// from the shortest triangle side, but is never finer than a billionth of
// the model's largest dimension.
func FromTriangles(model [][3]r3.Vec, vertexTol float64) (*Tree, error) {
	if vertexTol < 0 {
		return nil, errors.New("negative vertex tolerance")
	}
	if len(model) == 0 {
		return New(nil, nil)
	}
	bb := d3.EmptyBox()
	for _, tri := range model {
		bb = bb.Extend(d3.Triangle(tri).Bounds())
	}
	maxDim := d3.Max(bb.Size())
	if vertexTol == 0 {
		minSide2 := math.MaxFloat64
		for _, tri := range model {
			for j := range tri {
				side2 := r3.Norm2(r3.Sub(tri[(j+1)%3], tri[j]))
				if side2 > 0 {
					minSide2 = math.Min(minSide2, side2)
				}
			}
		}
		if minSide2 == math.MaxFloat64 {
			return nil, errors.New("all triangles degenerate")
		}
		vertexTol = math.Max(math.Sqrt(minSide2)/256, maxDim*minRelativeTol)
	}
	div := maxDim/vertexTol + 1e-12
	if div < 1 {
		return nil, errors.New("tolerance larger than model size")
	}
	if div > math.MaxInt64/2 {
		return nil, errors.New("tolerance too small. overflowed int64")
	}
	var vertices []r3.Vec
	tris := make([][3]int, len(model))
	cache := make(map[[3]int64]int)
	htol := 0.5 * vertexTol
	for i, tri := range model {
		for j, v := range tri {
			// look for a vertex within tolerance, keyed by grid
			// cell relative to the model's minimum corner.
			v0 := r3.Sub(v, bb.Min)
			key := [3]int64{
				int64(math.Floor((v0.X + htol) / vertexTol)),
				int64(math.Floor((v0.Y + htol) / vertexTol)),
				int64(math.Floor((v0.Z + htol) / vertexTol)),
			}
			idx, ok := cache[key]
			if !ok {
				idx = len(vertices)
				vertices = append(vertices, v)
				cache[key] = idx
			}
			tris[i][j] = idx
		}
	}
	return New(vertices, tris)
}

// Empty reports whether the tree holds no triangles.
func (t *Tree) Empty() bool { return t == nil || len(t.tris) == 0 }

// Len returns the number of triangles in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.tris)
}

// Bounds returns the bounding box of the surface.
func (t *Tree) Bounds() r3.Box { return r3.Box(t.bb) }

func (t *Tree) triangle(i int) d3.Triangle {
	tri := t.tris[i]
	return d3.Triangle{t.vertices[tri[0]], t.vertices[tri[1]], t.vertices[tri[2]]}
}

// childBoxes returns the boxes of the children of inner node n with box bb.
func childBoxes(n *node, bb d3.Box) (left, right d3.Box) {
	left, right = bb, bb
	switch n.axis() {
	case 0:
		left.Max.X = n.leftClip()
		right.Min.X = n.rightClip()
	case 1:
		left.Max.Y = n.leftClip()
		right.Min.Y = n.rightClip()
	case 2:
		left.Max.Z = n.leftClip()
		right.Min.Z = n.rightClip()
	}
	return left, right
}

type builder struct {
	tris      [][3]int
	centroids []r3.Vec
	vertices  []r3.Vec
}

// subdivide fills node idx with triangles [start,end) which lie in bb.
func (b *builder) subdivide(nodes []node, idx, start, end int, bb d3.Box) []node {
	if end-start <= maxLeafSize {
		nodes[idx] = node{flags: leaf, left: uint64(start), right: uint64(end)}
		return nodes
	}
	// classical heuristic: split the longest axis at the centroid median.
	axis := d3.LongestAxis(bb.Size())
	sort.Sort(byCentroid{b: b, axis: axis, start: start, end: end})
	mid := start + (end-start)/2
	leftBB, rightBB := b.bounds(start, mid), b.bounds(mid, end)

	// append two new nodes to store the children
	children := len(nodes)
	nodes = append(nodes, node{}, node{})
	nodes = b.subdivide(nodes, children, start, mid, leftBB)
	nodes = b.subdivide(nodes, children+1, mid, end, rightBB)
	nodes[idx] = node{
		flags: children<<2 | (axis + 1),
		left:  math.Float64bits(d3.Comp(leftBB.Max, axis)),
		right: math.Float64bits(d3.Comp(rightBB.Min, axis)),
	}
	return nodes
}

func (b *builder) bounds(start, end int) d3.Box {
	bb := d3.EmptyBox()
	for _, tri := range b.tris[start:end] {
		t := d3.Triangle{b.vertices[tri[0]], b.vertices[tri[1]], b.vertices[tri[2]]}
		bb = bb.Extend(t.Bounds())
	}
	return bb
}

// byCentroid sorts a range of triangles by centroid along an axis,
// keeping centroids aligned with their triangles.
type byCentroid struct {
	b          *builder
	axis       int
	start, end int
}

func (s byCentroid) Len() int { return s.end - s.start }
func (s byCentroid) Less(i, j int) bool {
	c := s.b.centroids
	return d3.Comp(c[s.start+i], s.axis) < d3.Comp(c[s.start+j], s.axis)
}
func (s byCentroid) Swap(i, j int) {
	i, j = s.start+i, s.start+j
	s.b.tris[i], s.b.tris[j] = s.b.tris[j], s.b.tris[i]
	s.b.centroids[i], s.b.centroids[j] = s.b.centroids[j], s.b.centroids[i]
}
