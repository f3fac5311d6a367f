package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d axis aligned bounding box.
type Box r3.Box

// EmptyBox returns an inverted box which any call to Include
// or Extend turns into a valid box.
func EmptyBox() Box {
	return Box{Min: Elem(math.MaxFloat64), Max: Elem(-math.MaxFloat64)}
}

// Extend returns a box enclosing two 3d boxes.
func (a Box) Extend(b Box) Box {
	return Box{
		Min: MinElem(a.Min, b.Min),
		Max: MaxElem(a.Max, b.Max),
	}
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Dist2 returns the squared distance from p to the box.
// Points inside the box are at distance 0.
func (a Box) Dist2(p r3.Vec) float64 {
	// https://math.stackexchange.com/questions/2133217/minimal-distance-to-a-cube-in-2d-and-3d-from-a-point-lying-outside
	dx := math.Max(0, math.Max(p.X-a.Max.X, a.Min.X-p.X))
	dy := math.Max(0, math.Max(p.Y-a.Max.Y, a.Min.Y-p.Y))
	dz := math.Max(0, math.Max(p.Z-a.Max.Z, a.Min.Z-p.Z))
	return dx*dx + dy*dy + dz*dz
}

// IntersectRay clips the ray segment origin+t*dir, t in [tmin,tmax],
// against the box using the slab method. It returns the clipped
// interval and false if the segment misses the box.
func (a Box) IntersectRay(origin, dir r3.Vec, tmin, tmax float64) (t0, t1 float64, ok bool) {
	t0, t1 = tmin, tmax
	for axis := 0; axis < 3; axis++ {
		o, d := Comp(origin, axis), Comp(dir, axis)
		lo, hi := Comp(a.Min, axis), Comp(a.Max, axis)
		if d == 0 {
			if o < lo || o > hi {
				return t0, t1, false
			}
			continue
		}
		inv := 1 / d
		near, far := (lo-o)*inv, (hi-o)*inv
		if near > far {
			near, far = far, near
		}
		t0 = math.Max(t0, near)
		t1 = math.Min(t1, far)
		if t0 > t1 {
			return t0, t1, false
		}
	}
	return t0, t1, true
}
