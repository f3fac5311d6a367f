package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a 3D triangle given by its three vertices.
type Triangle [3]r3.Vec

// Normal returns the unit normal of the triangle following
// counter clockwise winding. Degenerate triangles return the zero vector.
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Centroid returns the mean of the triangle's vertices.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(t[0], t[1]), t[2]))
}

// Bounds returns the bounding box of the triangle.
func (t Triangle) Bounds() Box {
	return Box{
		Min: MinElem(t[2], MinElem(t[0], t[1])),
		Max: MaxElem(t[2], MaxElem(t[0], t[1])),
	}
}

// Degenerate returns true if two of the triangle's vertices
// are within tol of each other.
func (t Triangle) Degenerate(tol float64) bool {
	return EqualWithin(t[0], t[1], tol) ||
		EqualWithin(t[1], t[2], tol) ||
		EqualWithin(t[2], t[0], tol)
}

// IntersectRay returns the ray parameter t at which origin+t*dir crosses
// the triangle. Both faces are hit. Rays parallel to the triangle's plane
// never hit. This is the Möller-Trumbore test.
//
// The parallel test is relative to the edge and direction lengths
// so it holds at any model scale.
func (t Triangle) IntersectRay(origin, dir r3.Vec) (float64, bool) {
	const eps = 1e-12
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	p := r3.Cross(dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) <= eps*r3.Norm(e1)*r3.Norm(e2)*r3.Norm(dir) {
		return 0, false
	}
	inv := 1 / det
	s := r3.Sub(origin, t[0])
	u := r3.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := r3.Cross(s, e1)
	v := r3.Dot(dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	return r3.Dot(e2, q) * inv, true
}

// Closest returns the point on the solid triangle closest to p.
//
// based on Geometric Tool's algorithm for
// distance between a point and a solid triangle,
// licensed under the Boost Software License
func (t Triangle) Closest(p r3.Vec) r3.Vec {
	diff := r3.Sub(p, t[0])
	edge0 := r3.Sub(t[1], t[0])
	edge1 := r3.Sub(t[2], t[0])

	a00 := r3.Dot(edge0, edge0)
	a01 := r3.Dot(edge0, edge1)
	a11 := r3.Dot(edge1, edge1)
	b0 := -r3.Dot(diff, edge0)
	b1 := -r3.Dot(diff, edge1)

	f00 := b0
	f10 := b0 + a00
	f01 := b0 + a01

	var p0, p1, st [2]float64
	var dt1, h0, h1 float64

	if f00 >= 0 {
		if f01 >= 0 {
			st = minEdge02(a11, b1)
		} else {
			p0 = [2]float64{0, f00 / (f00 - f01)}
			p1[0] = f01 / (f01 - f10)
			p1[1] = 1 - p1[0]
			dt1 = p1[1] - p0[1]
			h0 = dt1 * (a11*p0[1] + b1)
			if h0 >= 0 {
				st = minEdge02(a11, b1)
			} else {
				h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
				if h1 <= 0 {
					st = minEdge12(a01, a11, b1, f10, f01)
				} else {
					st = minInterior(p0, h0, p1, h1)
				}
			}
		}
	} else if f01 <= 0 {
		if f10 <= 0 {
			st = minEdge12(a01, a11, b1, f10, f01)
		} else {
			p0 = [2]float64{f00 / (f00 - f10), 0}
			p1[0] = f01 / (f01 - f10)
			p1[1] = 1 - p1[0]
			h0 = p1[1] * (a01*p0[0] + b1)
			if h0 >= 0 {
				st = p0
			} else {
				h1 = p1[1] * (a01*p1[0] + a11*p1[1] + b1)
				if h1 <= 0 {
					st = minEdge12(a01, a11, b1, f10, f01)
				} else {
					st = minInterior(p0, h0, p1, h1)
				}
			}
		}
	} else if f10 <= 0 {
		p0 = [2]float64{0, f00 / (f00 - f01)}
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		dt1 = p1[1] - p0[1]
		h0 = dt1 * (a11*p0[1] + b1)
		if h0 >= 0 {
			st = minEdge02(a11, b1)
		} else {
			h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
			if h1 <= 0 {
				st = minEdge12(a01, a11, b1, f10, f01)
			} else {
				st = minInterior(p0, h0, p1, h1)
			}
		}
	} else {
		p0 = [2]float64{f00 / (f00 - f10), 0}
		p1 = [2]float64{0, f00 / (f00 - f01)}
		h0 = p1[1] * (a01*p0[0] + b1)
		if h0 >= 0 {
			st = p0
		} else {
			h1 = p1[1] * (a11*p1[1] + b1)
			if h1 <= 0 {
				st = minEdge02(a11, b1)
			} else {
				st = minInterior(p0, h0, p1, h1)
			}
		}
	}
	return r3.Add(t[0], r3.Add(r3.Scale(st[0], edge0), r3.Scale(st[1], edge1)))
}

func minEdge02(a11, b1 float64) (p [2]float64) {
	switch {
	case b1 >= 0:
		p[1] = 0
	case a11+b1 <= 0:
		p[1] = 1
	default:
		p[1] = -b1 / a11
	}
	return p
}

func minEdge12(a01, a11, b1, f10, f01 float64) (p [2]float64) {
	h0 := a01 + b1 - f10
	if h0 >= 0 {
		p[1] = 0
	} else {
		h1 := a11 + b1 - f01
		if h1 <= 0 {
			p[1] = 1
		} else {
			p[1] = h0 / (h0 - h1)
		}
	}
	p[0] = 1 - p[1]
	return p
}

func minInterior(p0 [2]float64, h0 float64, p1 [2]float64, h1 float64) (p [2]float64) {
	z := h0 / (h0 - h1)
	omz := 1 - z
	p[0] = omz*p0[0] + z*p1[0]
	p[1] = omz*p0[1] + z*p1[1]
	return p
}
