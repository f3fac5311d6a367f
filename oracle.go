package fieldmesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Ray is a half line origin + t*Dir with t restricted to [0, MaxT].
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
	MaxT   float64
}

// At returns the point on the ray at parameter t.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// Hit is a ray/surface intersection.
type Hit struct {
	// T is the ray parameter of the intersection. For unit
	// direction rays it is the distance travelled.
	T     float64
	Point r3.Vec
}

// Oracle answers bounded ray queries against a reference surface.
// Implementations must be safe for concurrent use.
type Oracle interface {
	// Empty reports whether the reference surface holds no primitives.
	// The smoothing engine skips reprojection entirely for empty oracles.
	Empty() bool
	// Intersect returns the closest intersection of the ray with the
	// surface such that 0 <= T <= ray.MaxT.
	Intersect(ray Ray) (Hit, bool)
}

func usableOracle(o Oracle) bool {
	return o != nil && !o.Empty()
}
