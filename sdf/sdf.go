// Package sdf provides analytic reference surfaces as signed distance
// functions and a sphere tracing reprojection oracle over them.
package sdf

import (
	"errors"
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh/internal/d3"
)

// SDF3 is the interface to a 3d signed distance function object.
type SDF3 interface {
	// Evaluate takes a point in 3D space as input and returns
	// the minimum distance of the SDF3 to the point. The distance
	// is negative if the point is contained within the SDF3.
	Evaluate(p r3.Vec) float64
	// Bounds returns the bounding box that completely contains
	// the SDF3.
	Bounds() r3.Box
}

// sphere (exact distance field)
type sphere struct {
	radius float64
	bb     r3.Box
}

// Sphere return an SDF3 for a sphere centered at the origin.
func Sphere(radius float64) (SDF3, error) {
	if !(radius > 0) {
		return nil, errors.New("radius <= 0")
	}
	d := d3.Elem(radius)
	return &sphere{
		radius: radius,
		bb:     r3.Box{Min: r3.Scale(-1, d), Max: d},
	}, nil
}

// Evaluate returns the minimum distance to a sphere.
func (s *sphere) Evaluate(p r3.Vec) float64 {
	return r3.Norm(p) - s.radius
}

// Bounds returns the bounding box for a sphere.
func (s *sphere) Bounds() r3.Box {
	return s.bb
}

// box is a 3d box with optionally rounded edges.
type box struct {
	size  r3.Vec
	round float64
	bb    r3.Box
}

// Box return an SDF3 for a 3d box centered at the origin
// (rounded corners with round > 0).
func Box(size r3.Vec, round float64) (SDF3, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, errors.New("size <= 0")
	}
	if round < 0 {
		return nil, errors.New("round < 0")
	}
	size = r3.Scale(0.5, size)
	if round > math.Min(size.X, math.Min(size.Y, size.Z)) {
		return nil, errors.New("round larger than half the smallest side")
	}
	return &box{
		size:  r3.Sub(size, d3.Elem(round)),
		round: round,
		bb:    r3.Box{Min: r3.Scale(-1, size), Max: size},
	}, nil
}

// Evaluate returns the minimum distance to a 3d box.
func (s *box) Evaluate(p r3.Vec) float64 {
	q := r3.Vec{X: math.Abs(p.X), Y: math.Abs(p.Y), Z: math.Abs(p.Z)}
	d := r3.Sub(q, s.size)
	outside := r3.Norm(d3.MaxElem(d, r3.Vec{}))
	inside := math.Min(d3.Max(d), 0)
	return outside + inside - s.round
}

// Bounds returns the bounding box for a 3d box.
func (s *box) Bounds() r3.Box {
	return s.bb
}

// plane is the half space behind a plane. Its bounds are
// a large cube as a plane is not bounded.
type plane struct {
	p, n r3.Vec
	bb   r3.Box
}

// planeExtent is the half side of the box reported as a plane's bounds.
const planeExtent = 1e6

// Plane returns the half space lying behind the plane through point with
// the given normal. Points on the normal's side have positive distance.
func Plane(point, normal r3.Vec) (SDF3, error) {
	l := r3.Norm(normal)
	if l == 0 || !d3.IsFinite(normal) {
		return nil, errors.New("invalid plane normal")
	}
	e := d3.Elem(planeExtent)
	return &plane{
		p:  point,
		n:  r3.Scale(1/l, normal),
		bb: r3.Box{Min: r3.Sub(point, e), Max: r3.Add(point, e)},
	}, nil
}

// Evaluate returns the signed distance to the plane.
func (s *plane) Evaluate(p r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, s.p), s.n)
}

// Bounds returns a large box around the plane's anchor point.
func (s *plane) Bounds() r3.Box {
	return s.bb
}

// union of SDF3s.
type union struct {
	sdf []SDF3
	bb  r3.Box
}

// Union returns the union of multiple SDF3 objects.
func Union(sdfs ...SDF3) (SDF3, error) {
	if len(sdfs) < 2 {
		return nil, errors.New("union require at least 2 sdfs")
	}
	for i, x := range sdfs {
		if x == nil {
			return nil, errors.New("nil sdf argument (" + strconv.Itoa(i) + ") to Union")
		}
	}
	// work out the bounding box
	bb := d3.Box(sdfs[0].Bounds())
	for _, x := range sdfs[1:] {
		bb = bb.Extend(d3.Box(x.Bounds()))
	}
	return &union{sdf: sdfs, bb: r3.Box(bb)}, nil
}

// Evaluate returns the minimum distance to an SDF3 union.
func (s *union) Evaluate(p r3.Vec) float64 {
	d := s.sdf[0].Evaluate(p)
	for _, x := range s.sdf[1:] {
		d = math.Min(d, x.Evaluate(p))
	}
	return d
}

// Bounds returns the bounding box of an SDF3 union.
func (s *union) Bounds() r3.Box {
	return s.bb
}

// Translate returns s moved by offset.
func Translate(s SDF3, offset r3.Vec) SDF3 {
	bb := s.Bounds()
	return &translate{
		sdf:    s,
		offset: offset,
		bb:     r3.Box{Min: r3.Add(bb.Min, offset), Max: r3.Add(bb.Max, offset)},
	}
}

type translate struct {
	sdf    SDF3
	offset r3.Vec
	bb     r3.Box
}

func (s *translate) Evaluate(p r3.Vec) float64 { return s.sdf.Evaluate(r3.Sub(p, s.offset)) }
func (s *translate) Bounds() r3.Box            { return s.bb }
