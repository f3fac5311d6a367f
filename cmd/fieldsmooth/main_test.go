package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/fieldmesh"
	"github.com/soypat/fieldmesh/meshio"
)

// triangleOBJ is a 2x2 grid of unit squares split into triangles.
const triangleOBJ = `v 0 0 0
v 1 0 0
v 2 0 0
v 0 1 0
v 1 1 0.2
v 2 1 0
v 0 2 0
v 1 2 0
v 2 2 0
f 1 2 5
f 1 5 4
f 2 3 6
f 2 6 5
f 4 5 8
f 4 8 7
f 5 6 9
f 5 9 8
`

func TestFaceArity(t *testing.T) {
	tris := fieldmesh.Mesh{Faces: [][]int{{0, 1, 2}}}
	quads := fieldmesh.Mesh{Faces: [][]int{{0, 1, 2, 3}}}
	for _, test := range []struct {
		m          fieldmesh.Mesh
		posy, want int
	}{
		{m: tris, want: 3},
		{m: quads, want: 4},
		{m: tris, posy: 4, want: 4},
		{m: fieldmesh.Mesh{}, want: 0},
	} {
		if got := faceArity(test.m, test.posy); got != test.want {
			t.Errorf("faceArity(%v, %d): got %d, want %d", test.m.Faces, test.posy, got, test.want)
		}
	}
}

func TestRunTriangleMesh(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.obj")
	out := filepath.Join(dir, "out.obj")
	if err := os.WriteFile(in, []byte(triangleOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config{in: in, out: out, crease: "0,2,6,8", parms: fieldmesh.Parms{Iterations: 1}}
	if err := run(cfg); err != nil {
		t.Fatal(err)
	}
	m, err := meshio.ReadOBJFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Positions) != 9 || len(m.Faces) != 8 {
		t.Fatalf("got %d positions and %d faces", len(m.Positions), len(m.Faces))
	}
	// the raised center vertex relaxes towards the plane of its neighbors.
	if z := m.Positions[4].Z; z >= 0.2 {
		t.Errorf("center vertex not relaxed, z=%g", z)
	}

	cfg.parms.PoSy = 4
	if err := run(cfg); !errors.Is(err, fieldmesh.ErrFaceArity) {
		t.Errorf("explicit quad arity: got %v, want %v", err, fieldmesh.ErrFaceArity)
	}
}
