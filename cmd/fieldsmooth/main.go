// Command fieldsmooth relaxes the vertices of an extracted quad or triangle
// mesh, optionally snapping them back onto a reference surface.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/soypat/fieldmesh"
	"github.com/soypat/fieldmesh/bih"
	"github.com/soypat/fieldmesh/meshio"
	"github.com/soypat/fieldmesh/sdf"
)

func main() {
	var (
		in       = flag.String("in", "", "input OBJ mesh")
		out      = flag.String("out", "out.obj", "output OBJ mesh")
		ref      = flag.String("ref", "", "binary STL reference surface")
		sphere   = flag.Float64("sphere", 0, "use a sphere of this radius centered at the origin as reference surface")
		iter     = flag.Int("iter", 2, "number of smoothing passes")
		scale    = flag.Float64("scale", 0, "target edge length, 0 infers it from the mean edge length")
		posy     = flag.Int("posy", 0, "face arity, 3 or 4. 0 takes it from the first face")
		pureQuad = flag.Bool("pure-quad", false, "reject irregular quads")
		crease   = flag.String("crease", "", "comma separated vertex indices left in place")
		workers  = flag.Int("workers", 0, "worker goroutines, 0 uses GOMAXPROCS")
		png      = flag.String("png", "", "write a preview of the result to this PNG file")
		plotName = flag.String("plot", "", "plot mean vertex shift per pass to this file")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	fieldmesh.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	err := run(config{
		in: *in, out: *out, ref: *ref, sphere: *sphere,
		png: *png, plot: *plotName,
		crease: *crease,
		parms: fieldmesh.Parms{
			Iterations: *iter,
			Scale:      *scale,
			PoSy:       *posy,
			PureQuad:   *pureQuad,
			Workers:    *workers,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fieldsmooth:", err)
		os.Exit(1)
	}
}

type config struct {
	in, out, ref string
	sphere       float64
	png, plot    string
	crease       string
	parms        fieldmesh.Parms
}

func run(cfg config) error {
	log := fieldmesh.Logger()
	m, err := meshio.ReadOBJFile(cfg.in)
	if err != nil {
		return err
	}
	parms := cfg.parms
	parms.PoSy = faceArity(m, parms.PoSy)
	parms.Crease, err = parseCrease(cfg.crease)
	if err != nil {
		return err
	}
	if parms.Scale == 0 {
		parms.Scale = meanEdgeLength(m)
		log.Info("inferred scale", "scale", parms.Scale)
	}

	var tree *bih.Tree
	switch {
	case cfg.ref != "" && cfg.sphere > 0:
		return errors.New("-ref and -sphere are mutually exclusive")
	case cfg.ref != "":
		model, err := meshio.ReadSTLFile(cfg.ref)
		if err != nil && !errors.Is(err, meshio.ErrNormalMismatch) {
			return err
		}
		tree, err = bih.FromTriangles(model, 0)
		if err != nil {
			return err
		}
		parms.Oracle = tree
	case cfg.sphere > 0:
		s, err := sdf.Sphere(cfg.sphere)
		if err != nil {
			return err
		}
		parms.Oracle, err = sdf.NewTracer(s, 1e-6*cfg.sphere)
		if err != nil {
			return err
		}
	}

	res, err := fieldmesh.Smooth(m, parms)
	if err != nil {
		return err
	}
	if tree != nil {
		reportDeviation(tree, res.Positions, parms.Scale)
	}
	m.Positions, m.Normals = res.Positions, res.Normals
	if err := meshio.WriteOBJFile(cfg.out, m); err != nil {
		return err
	}
	log.Info("wrote mesh", "path", cfg.out, "vertices", len(m.Positions), "faces", len(m.Faces))
	if cfg.png != "" {
		if err := meshio.WritePNG(cfg.png, m, meshio.DefaultView); err != nil {
			return err
		}
	}
	if cfg.plot != "" && len(res.Stats) > 0 {
		if err := plotConvergence(cfg.plot, res.Stats); err != nil {
			return err
		}
	}
	return nil
}

// faceArity returns posy, or the arity of the first face of m when
// posy is zero.
func faceArity(m fieldmesh.Mesh, posy int) int {
	if posy != 0 || len(m.Faces) == 0 {
		return posy
	}
	return len(m.Faces[0])
}

func parseCrease(s string) (map[int]struct{}, error) {
	if s == "" {
		return nil, nil
	}
	crease := make(map[int]struct{})
	for _, f := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || i < 0 {
			return nil, fmt.Errorf("bad crease vertex %q", f)
		}
		crease[i] = struct{}{}
	}
	return crease, nil
}

// meanEdgeLength averages the length of face edges. Shared edges are
// counted once per face.
func meanEdgeLength(m fieldmesh.Mesh) float64 {
	var (
		sum float64
		n   int
	)
	for _, f := range m.Faces {
		for k := range f {
			a, b := f[k], f[(k+1)%len(f)]
			if a == b || a >= len(m.Positions) || b >= len(m.Positions) {
				continue
			}
			sum += r3.Norm(r3.Sub(m.Positions[a], m.Positions[b]))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// reportDeviation logs the distance of the smoothed vertices to the
// reference surface. Vertices farther than scale are counted as outliers.
func reportDeviation(tree *bih.Tree, pos []r3.Vec, scale float64) {
	var (
		sum, worst float64
		n, far     int
	)
	for _, p := range pos {
		_, d, ok := tree.Closest(p, scale)
		if !ok {
			far++
			continue
		}
		sum += d
		worst = math.Max(worst, d)
		n++
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	fieldmesh.Logger().Info("deviation from reference", "mean", mean, "max", worst, "outliers", far)
}

func plotConvergence(path string, stats []fieldmesh.PassStats) error {
	mean := make(plotter.XYs, len(stats))
	worst := make(plotter.XYs, len(stats))
	for i, s := range stats {
		mean[i] = plotter.XY{X: float64(i + 1), Y: s.MeanShift}
		worst[i] = plotter.XY{X: float64(i + 1), Y: s.MaxShift}
	}
	p := plot.New()
	p.Title.Text = "Vertex shift per pass"
	p.X.Label.Text = "pass"
	p.Y.Label.Text = "shift"
	lmean, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	lmax, err := plotter.NewLine(worst)
	if err != nil {
		return err
	}
	lmax.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(lmean, lmax, plotter.NewGrid())
	p.Legend.Add("mean", lmean)
	p.Legend.Add("max", lmax)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
