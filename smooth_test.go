package fieldmesh_test

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh"
	"github.com/soypat/fieldmesh/sdf"
)

// gridMesh returns an n by n quad grid of unit spacing on the z=0 plane.
func gridMesh(n int) fieldmesh.Mesh {
	var m fieldmesh.Mesh
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			m.Positions = append(m.Positions, r3.Vec{X: float64(i), Y: float64(j)})
		}
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v := j*(n+1) + i
			m.Faces = append(m.Faces, []int{v, v + 1, v + n + 2, v + n + 1})
		}
	}
	return m
}

// capMesh returns an n by n quad grid projected onto the unit sphere
// around +Z, spanning about half a radian.
func capMesh(n int) fieldmesh.Mesh {
	m := gridMesh(n)
	for i, p := range m.Positions {
		x := 0.5 * (p.X/float64(n) - 0.5)
		y := 0.5 * (p.Y/float64(n) - 0.5)
		m.Positions[i] = r3.Unit(r3.Vec{X: x, Y: y, Z: 1})
	}
	return m
}

func corners(n int) map[int]struct{} {
	last := (n + 1) * (n + 1)
	return map[int]struct{}{0: {}, n: {}, last - n - 1: {}, last - 1: {}}
}

func copyVecs(v []r3.Vec) []r3.Vec { return append([]r3.Vec(nil), v...) }

// withRadialNormals sets each normal of a mesh around the origin to
// its unit position.
func withRadialNormals(m fieldmesh.Mesh) fieldmesh.Mesh {
	m.Normals = make([]r3.Vec, len(m.Positions))
	for i, p := range m.Positions {
		m.Normals[i] = r3.Unit(p)
	}
	return m
}

func TestSmoothZeroIterations(t *testing.T) {
	m := withRadialNormals(capMesh(4))
	res, err := fieldmesh.Smooth(m, fieldmesh.Parms{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Positions) != len(m.Positions) || len(res.Normals) != len(m.Normals) {
		t.Fatalf("got %d positions and %d normals", len(res.Positions), len(res.Normals))
	}
	for i := range m.Positions {
		if res.Positions[i] != m.Positions[i] {
			t.Fatalf("vertex %d moved without iterations", i)
		}
		if res.Normals[i] != m.Normals[i] {
			t.Fatalf("normal %d changed without iterations", i)
		}
	}
	if len(res.Stats) != 0 || res.Variation != nil {
		t.Errorf("unexpected result fields: %+v", res)
	}

	m.Normals = nil
	res, err = fieldmesh.Smooth(m, fieldmesh.Parms{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Normals != nil {
		t.Errorf("got normals %v for mesh without normals", res.Normals)
	}
}

func TestSmoothFlatGrid(t *testing.T) {
	const n = 3
	m := gridMesh(n)
	m.Normals = make([]r3.Vec, len(m.Positions))
	for i := range m.Normals {
		m.Normals[i] = r3.Vec{Z: -1}
	}
	input := copyVecs(m.Positions)
	res, err := fieldmesh.Smooth(m, fieldmesh.Parms{Iterations: 1, Variation: true})
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range m.Positions {
		if p != input[i] {
			t.Fatal("input positions modified")
		}
	}
	for _, test := range []struct {
		v    int
		want r3.Vec
	}{
		{v: 0, want: r3.Vec{X: 0.5, Y: 0.5}},       // corner: mean of 2 neighbors
		{v: 1, want: r3.Vec{X: 1, Y: 1.0 / 3}},     // edge: mean of 3 neighbors
		{v: 5, want: r3.Vec{X: 1, Y: 1}},           // interior: mean of 4 neighbors
		{v: 15, want: r3.Vec{X: 2.5, Y: 2.5}},      // opposite corner
		{v: 7, want: r3.Vec{X: 8.0 / 3, Y: 1}},     // right edge
		{v: 13, want: r3.Vec{X: 1, Y: 3 - 1.0/3}},  // top edge
		{v: 10, want: r3.Vec{X: 2, Y: 2}},          // interior
		{v: 4, want: r3.Vec{X: 1.0 / 3, Y: 1}},     // left edge
		{v: 3, want: r3.Vec{X: 2.5, Y: 0.5}},       // corner
		{v: 12, want: r3.Vec{X: 0.5, Y: 2.5}},      // corner
		{v: 2, want: r3.Vec{X: 2, Y: 1.0 / 3}},     // bottom edge
		{v: 8, want: r3.Vec{X: 1.0 / 3, Y: 2}},     // left edge
		{v: 11, want: r3.Vec{X: 3 - 1.0/3, Y: 2}},  // right edge
		{v: 14, want: r3.Vec{X: 2, Y: 3 - 1.0/3}},  // top edge
		{v: 6, want: r3.Vec{X: 2, Y: 1}},           // interior
		{v: 9, want: r3.Vec{X: 1, Y: 2}},           // interior
	} {
		got := res.Positions[test.v]
		if r3.Norm(r3.Sub(got, test.want)) > 1e-12 {
			t.Errorf("vertex %d: got %v, want %v", test.v, got, test.want)
		}
	}
	for i, nrm := range res.Normals {
		if isCorner(i, n) {
			continue // two neighbors do not define a plane.
		}
		if r3.Norm(r3.Sub(nrm, r3.Vec{Z: -1})) > 1e-9 {
			t.Errorf("vertex %d: normal %v not oriented along input normals", i, nrm)
		}
		if res.Variation[i] > 1e-12 {
			t.Errorf("vertex %d: planar variation %g", i, res.Variation[i])
		}
	}
	if len(res.Stats) != 1 || res.Stats[0].Moved != len(m.Positions) || res.Stats[0].Reprojected != 0 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
}

func isCorner(i, n int) bool {
	x, y := i%(n+1), i/(n+1)
	return (x == 0 || x == n) && (y == 0 || y == n)
}

func TestSmoothUntrackedNormals(t *testing.T) {
	m := gridMesh(3)
	res, err := fieldmesh.Smooth(m, fieldmesh.Parms{Iterations: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Normals != nil {
		t.Error("normals returned for untracked run")
	}
	for i, p := range res.Positions {
		if p.Z != 0 {
			t.Errorf("vertex %d left the plane: %v", i, p)
		}
	}
}

func TestSmoothFixedVertices(t *testing.T) {
	m := gridMesh(3)
	// vertex 16 is isolated.
	m.Positions = append(m.Positions, r3.Vec{X: 7, Y: 7, Z: 7})
	m.Normals = make([]r3.Vec, len(m.Positions))
	for i := range m.Normals {
		m.Normals[i] = r3.Unit(r3.Vec{X: 1, Z: 1})
	}
	crease := map[int]struct{}{0: {}, 5: {}}
	res, err := fieldmesh.Smooth(m, fieldmesh.Parms{Iterations: 4, Crease: crease})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int{0, 5, 16} {
		if res.Positions[v] != m.Positions[v] || res.Normals[v] != m.Normals[v] {
			t.Errorf("fixed vertex %d changed: %v %v", v, res.Positions[v], res.Normals[v])
		}
	}
	for _, s := range res.Stats {
		if s.Moved != len(m.Positions)-3 {
			t.Errorf("got %d moved vertices, want %d", s.Moved, len(m.Positions)-3)
		}
	}
}

func TestSmoothReprojectSphere(t *testing.T) {
	const n = 6
	s, err := sdf.Sphere(1)
	if err != nil {
		t.Fatal(err)
	}
	tracer, err := sdf.NewTracer(s, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	m := capMesh(n)
	parms := fieldmesh.Parms{
		Iterations: 3,
		Scale:      0.2,
		Oracle:     tracer,
		Crease:     corners(n),
	}
	res, err := fieldmesh.Smooth(m, parms)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range res.Positions {
		if d := math.Abs(r3.Norm(p) - 1); d > 1e-8 {
			t.Errorf("vertex %d at distance %g from the sphere", i, d)
		}
	}
	for _, st := range res.Stats {
		if st.Reprojected != st.Moved {
			t.Errorf("%d of %d relaxed vertices reprojected", st.Reprojected, st.Moved)
		}
	}

	// Without the reference surface the centroids sink below the sphere.
	parms.Oracle = nil
	res, err = fieldmesh.Smooth(m, parms)
	if err != nil {
		t.Fatal(err)
	}
	if p := res.Positions[n+2]; r3.Norm(p) > 1-1e-4 {
		t.Errorf("expected relaxed vertex inside the sphere, got radius %g", r3.Norm(p))
	}
}

func TestSmoothDeterministic(t *testing.T) {
	const n = 30
	s, _ := sdf.Sphere(1)
	tracer, _ := sdf.NewTracer(s, 1e-9)
	m := withRadialNormals(capMesh(n))
	parms := fieldmesh.Parms{Iterations: 3, Scale: 0.05, Oracle: tracer, Variation: true}
	parms.Workers = 1
	want, err := fieldmesh.Smooth(m, parms)
	if err != nil {
		t.Fatal(err)
	}
	for _, grain := range []int{1, 13, 256} {
		parms.Workers, parms.Grain = 8, grain
		got, err := fieldmesh.Smooth(m, parms)
		if err != nil {
			t.Fatal(err)
		}
		for i := range want.Positions {
			if got.Positions[i] != want.Positions[i] || got.Variation[i] != want.Variation[i] {
				t.Fatalf("grain %d: vertex %d differs from serial run", grain, i)
			}
			if got.Normals[i] != want.Normals[i] {
				t.Fatalf("grain %d: normal %d differs from serial run", grain, i)
			}
		}
	}
}

func TestSmoothErrors(t *testing.T) {
	s, _ := sdf.Sphere(1)
	tracer, _ := sdf.NewTracer(s, 1e-6)
	irregular := gridMesh(1)
	irregular.Faces = append(irregular.Faces, []int{0, 1, 3, 3})
	for _, test := range []struct {
		name  string
		m     fieldmesh.Mesh
		parms fieldmesh.Parms
		want  error
	}{
		{
			name:  "normals",
			m:     fieldmesh.Mesh{Faces: gridMesh(1).Faces, Positions: gridMesh(1).Positions, Normals: []r3.Vec{{Z: 1}}},
			parms: fieldmesh.Parms{Iterations: 1},
			want:  fieldmesh.ErrNormalCount,
		},
		{
			name:  "scale",
			m:     gridMesh(1),
			parms: fieldmesh.Parms{Iterations: 1, Oracle: tracer},
			want:  fieldmesh.ErrScale,
		},
		{
			name:  "pure quad",
			m:     irregular,
			parms: fieldmesh.Parms{Iterations: 1, PureQuad: true},
			want:  fieldmesh.ErrIrregularFace,
		},
	} {
		res, err := fieldmesh.Smooth(test.m, test.parms)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: got %v, want %v", test.name, err, test.want)
		}
		if res.Positions != nil {
			t.Errorf("%s: partial result on error", test.name)
		}
	}
}

func BenchmarkSmooth(b *testing.B) {
	s, _ := sdf.Sphere(1)
	tracer, _ := sdf.NewTracer(s, 1e-7)
	m := capMesh(100)
	parms := fieldmesh.Parms{Iterations: 2, Scale: 0.01, Oracle: tracer}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := fieldmesh.Smooth(m, parms)
		if err != nil {
			b.Fatal(err)
		}
	}
}
