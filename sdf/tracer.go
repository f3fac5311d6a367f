package sdf

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh"
)

// DefaultMaxSteps bounds the number of sphere tracing steps per query.
const DefaultMaxSteps = 256

// Tracer finds ray/surface intersections of an SDF3 by sphere tracing.
// The absolute value of the SDF must not exceed the true distance to the
// surface on either side of it, which holds for exact fields such as
// Sphere, Box and Plane but not for the interior of an overlapping Union.
type Tracer struct {
	sdf      SDF3
	tol      float64
	maxSteps int
}

var _ fieldmesh.Oracle = (*Tracer)(nil)

// NewTracer returns a Tracer that reports a hit once the distance to the
// surface drops below tol.
func NewTracer(s SDF3, tol float64) (*Tracer, error) {
	if s == nil {
		return nil, errors.New("nil sdf")
	}
	if !(tol > 0) {
		return nil, errors.New("tolerance must be positive")
	}
	return &Tracer{sdf: s, tol: tol, maxSteps: DefaultMaxSteps}, nil
}

// Empty reports false for any non-nil Tracer. An SDF always
// describes a surface.
func (tr *Tracer) Empty() bool { return tr == nil }

// Intersect marches along ray by the distance to the surface until it
// lands within tolerance of the surface or passes ray.MaxT.
func (tr *Tracer) Intersect(ray fieldmesh.Ray) (fieldmesh.Hit, bool) {
	l := r3.Norm(ray.Dir)
	if tr == nil || l == 0 || !(ray.MaxT >= 0) {
		return fieldmesh.Hit{}, false
	}
	dir := r3.Scale(1/l, ray.Dir)
	maxDist := ray.MaxT * l
	var dist float64
	for step := 0; step < tr.maxSteps && dist <= maxDist; step++ {
		p := r3.Add(ray.Origin, r3.Scale(dist, dir))
		d := tr.sdf.Evaluate(p)
		if d < 0 {
			d = -d
		}
		if d < tr.tol {
			return fieldmesh.Hit{T: dist / l, Point: p}, true
		}
		dist += d
	}
	return fieldmesh.Hit{}, false
}
