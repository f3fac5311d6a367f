package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh"
)

// ReadOBJFile reads a Wavefront OBJ polygon mesh from path. See ReadOBJ.
func ReadOBJFile(path string) (fieldmesh.Mesh, error) {
	fp, err := os.Open(path)
	if err != nil {
		return fieldmesh.Mesh{}, err
	}
	defer fp.Close()
	return ReadOBJ(fp)
}

// ReadOBJ reads the vertices, vertex normals and triangle or quad faces of
// an OBJ file. Other statements are ignored. When both triangles and quads
// are present triangles are stored in quad form with the last index
// repeated. Normals are returned only if every vertex referenced by a face
// is given one through the v//vn face syntax.
func ReadOBJ(r io.Reader) (fieldmesh.Mesh, error) {
	var (
		m        fieldmesh.Mesh
		vn       []r3.Vec
		vnOf     = map[int]int{} // vertex -> normal index
		hasQuads bool
		line     int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		var err error
		switch fields[0] {
		case "v":
			var v r3.Vec
			v, err = parseVec(fields[1:])
			m.Positions = append(m.Positions, v)
		case "vn":
			var n r3.Vec
			n, err = parseVec(fields[1:])
			vn = append(vn, n)
		case "f":
			var face []int
			face, err = parseFace(fields[1:], len(m.Positions), len(vn), vnOf)
			if err == nil {
				hasQuads = hasQuads || len(face) == 4
				m.Faces = append(m.Faces, face)
			}
		}
		if err != nil {
			return fieldmesh.Mesh{}, fmt.Errorf("obj line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fieldmesh.Mesh{}, err
	}
	if hasQuads {
		for i, f := range m.Faces {
			if len(f) == 3 {
				m.Faces[i] = append(f, f[2])
			}
		}
	}
	if len(vn) > 0 && len(vnOf) == len(m.Positions) {
		m.Normals = make([]r3.Vec, len(m.Positions))
		for v, n := range vnOf {
			m.Normals[v] = r3.Unit(vn[n])
		}
	}
	return m, nil
}

func parseVec(fields []string) (v r3.Vec, err error) {
	if len(fields) < 3 {
		return v, errors.New("vector needs 3 components")
	}
	var c [3]float64
	for i := range c {
		c[i], err = strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return v, err
		}
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseFace parses face corners of the forms v, v/vt, v//vn and v/vt/vn.
// Indices are 1-based, negative indices are relative to the end.
func parseFace(fields []string, nv, nvn int, vnOf map[int]int) ([]int, error) {
	if len(fields) != 3 && len(fields) != 4 {
		return nil, fmt.Errorf("only triangles and quads supported, got %d corners", len(fields))
	}
	face := make([]int, len(fields))
	for i, corner := range fields {
		parts := strings.Split(corner, "/")
		v, err := objIndex(parts[0], nv)
		if err != nil {
			return nil, err
		}
		face[i] = v
		if len(parts) == 3 && parts[2] != "" {
			n, err := objIndex(parts[2], nvn)
			if err != nil {
				return nil, err
			}
			vnOf[v] = n
		}
	}
	return face, nil
}

func objIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += n
	default:
		return 0, errors.New("zero index")
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: %s", fieldmesh.ErrIndexRange, s)
	}
	return i, nil
}

// WriteOBJFile writes m to an OBJ file at path.
func WriteOBJFile(path string, m fieldmesh.Mesh) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	err = WriteOBJ(fp, m)
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteOBJ writes m in OBJ format. Vertex normals are written when present.
// Quads with equal last two indices are written as triangles.
func WriteOBJ(w io.Writer, m fieldmesh.Mesh) error {
	bw := bufio.NewWriter(w)
	withNormals := len(m.Normals) > 0
	for _, v := range m.Positions {
		fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %g %g %g\n", n.X, n.Y, n.Z)
	}
	for _, f := range m.Faces {
		if len(f) == 4 && f[2] == f[3] {
			f = f[:3]
		}
		bw.WriteString("f")
		for _, v := range f {
			if withNormals {
				fmt.Fprintf(bw, " %d//%d", v+1, v+1)
			} else {
				fmt.Fprintf(bw, " %d", v+1)
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
