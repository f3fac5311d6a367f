package meshio

import (
	"errors"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh"
)

// View configures the camera of a preview render. The mesh is fit into a
// bi-unit cube centered at the origin before rendering so the camera
// settings are independent of the mesh's scale.
type View struct {
	Width, Height int
	// Supersampling factor. The image is rendered this many times
	// larger and downsampled for antialiasing.
	Scale     int
	Eye       r3.Vec
	Center    r3.Vec
	Up        r3.Vec
	Fovy      float64
	Near, Far float64
	Color     string // hex object color
}

// DefaultView looks at the mesh from an elevated diagonal.
var DefaultView = View{
	Width:  800,
	Height: 600,
	Scale:  2,
	Eye:    r3.Vec{X: 3, Y: 2, Z: 3},
	Up:     r3.Vec{Y: 1},
	Fovy:   30,
	Near:   1,
	Far:    10,
	Color:  "#468966",
}

// Triangulate returns the triangles of m's faces. Quads are split along
// their 0-2 diagonal; irregular quads yield a single triangle.
func Triangulate(m fieldmesh.Mesh) [][3]r3.Vec {
	tris := make([][3]r3.Vec, 0, 2*len(m.Faces))
	for _, f := range m.Faces {
		p := m.Positions
		switch {
		case len(f) == 3 || (len(f) == 4 && f[2] == f[3]):
			tris = append(tris, [3]r3.Vec{p[f[0]], p[f[1]], p[f[2]]})
		case len(f) == 4:
			tris = append(tris,
				[3]r3.Vec{p[f[0]], p[f[1]], p[f[2]]},
				[3]r3.Vec{p[f[0]], p[f[2]], p[f[3]]},
			)
		}
	}
	return tris
}

// Render draws m shaded with a phong shader as seen from view.
func Render(m fieldmesh.Mesh, view View) (image.Image, error) {
	tris := Triangulate(m)
	if len(tris) == 0 {
		return nil, errors.New("no faces to render")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.New("invalid preview dimensions")
	}
	if view.Scale < 1 {
		view.Scale = 1
	}
	ftris := make([]*fauxgl.Triangle, 0, len(tris))
	for _, t := range tris {
		ftris = append(ftris, fauxgl.NewTriangleForPoints(fv(t[0]), fv(t[1]), fv(t[2])))
	}
	mesh := fauxgl.NewTriangleMesh(ftris)
	mesh.BiUnitCube()
	mesh.SmoothNormals()

	var (
		eye   = fv(view.Eye)
		light = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(view.Width*view.Scale, view.Height*view.Scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, fv(view.Center), fv(view.Up)).Perspective(view.Fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(view.Color)
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	img := context.Image()
	return resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear), nil
}

// WritePNG renders m with view and saves it as a PNG file at path.
func WritePNG(path string, m fieldmesh.Mesh, view View) error {
	img, err := Render(m, view)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

func fv(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
