package fieldmesh

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// distOracle reports hits at fixed parameters along rays pointing in +Z
// and -Z. A negative parameter means no surface in that direction.
type distOracle struct {
	up, down float64
	empty    bool
}

func (o distOracle) Empty() bool { return o.empty }

func (o distOracle) Intersect(ray Ray) (Hit, bool) {
	t := o.down
	if ray.Dir.Z > 0 {
		t = o.up
	}
	if t < 0 || t > ray.MaxT {
		return Hit{}, false
	}
	return Hit{T: t, Point: ray.At(t)}, true
}

func TestReprojectPoint(t *testing.T) {
	const scale = 1.0
	c := r3.Vec{X: 1, Y: 2, Z: 3}
	n := r3.Vec{Z: 1}
	for _, test := range []struct {
		name     string
		up, down float64
		want     r3.Vec
		hit      bool
	}{
		{name: "miss", up: -1, down: -1, want: c},
		{name: "up only", up: 0.2, down: -1, want: r3.Vec{X: 1, Y: 2, Z: 3.2}, hit: true},
		{name: "down only", up: -1, down: 0.3, want: r3.Vec{X: 1, Y: 2, Z: 2.7}, hit: true},
		{name: "closest wins", up: 0.4, down: 0.1, want: r3.Vec{X: 1, Y: 2, Z: 2.9}, hit: true},
		{name: "tie goes up", up: 0.25, down: 0.25, want: r3.Vec{X: 1, Y: 2, Z: 3.25}, hit: true},
		{name: "at cap", up: scale / 2, down: scale / 2, want: c},
		{name: "zero distance", up: 0, down: 0.1, want: c, hit: true},
	} {
		e := engine{parms: &Parms{Scale: scale, Oracle: distOracle{up: test.up, down: test.down}}}
		got, hit := e.reprojectPoint(c, n)
		if hit != test.hit {
			t.Errorf("%s: got hit=%v, want %v", test.name, hit, test.hit)
		}
		if r3.Norm(r3.Sub(got, test.want)) > 1e-12 {
			t.Errorf("%s: got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestRelaxEmptyOracle(t *testing.T) {
	positions := []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	adj, err := BuildAdjacency([][]int{{0, 1, 2, 3}}, 4, Parms{})
	if err != nil {
		t.Fatal(err)
	}
	// An empty surface disables reprojection and so does not require a scale.
	withEmpty, err := Relax(positions, nil, adj, Parms{Iterations: 2, Oracle: distOracle{up: 0.1, down: 0.1, empty: true}})
	if err != nil {
		t.Fatal(err)
	}
	plain, err := Relax(positions, nil, adj, Parms{Iterations: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := range plain.Positions {
		if withEmpty.Positions[i] != plain.Positions[i] {
			t.Errorf("vertex %d: got %v, want %v", i, withEmpty.Positions[i], plain.Positions[i])
		}
	}
	for _, s := range withEmpty.Stats {
		if s.Reprojected != 0 {
			t.Error("reprojection ran against an empty surface")
		}
	}
}
