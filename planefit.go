package fieldmesh

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/fieldmesh/internal/d3"
)

// planeFitter holds scratch space for least squares plane fits.
// A planeFitter must not be shared between goroutines.
type planeFitter struct {
	cov  *mat.SymDense
	eig  mat.EigenSym
	vecs mat.Dense
	vals []float64
}

func newPlaneFitter() *planeFitter {
	return &planeFitter{
		cov:  mat.NewSymDense(3, nil),
		vals: make([]float64, 3),
	}
}

// fit returns the unit normal of the least squares plane through the
// neighbor positions pos[nbrs] about centroid c: the eigenvector of the
// covariance matrix with smallest eigenvalue. variation is
// λmin/(λ0+λ1+λ2), the fraction of spread off the plane, in [0, 1/3].
// ok is false when the neighborhood has no spread or the
// decomposition fails; the returned normal is then undefined.
func (pf *planeFitter) fit(pos []r3.Vec, nbrs []int, c r3.Vec) (normal r3.Vec, variation float64, ok bool) {
	var xx, xy, xz, yy, yz, zz float64
	for _, j := range nbrs {
		d := r3.Sub(pos[j], c)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}
	pf.cov.SetSym(0, 0, xx)
	pf.cov.SetSym(0, 1, xy)
	pf.cov.SetSym(0, 2, xz)
	pf.cov.SetSym(1, 1, yy)
	pf.cov.SetSym(1, 2, yz)
	pf.cov.SetSym(2, 2, zz)
	if xx+yy+zz == 0 || !pf.eig.Factorize(pf.cov, true) {
		return r3.Vec{}, 0, false
	}
	// Eigenvalues are in ascending order.
	vals := pf.eig.Values(pf.vals)
	pf.eig.VectorsTo(&pf.vecs)
	normal = r3.Vec{X: pf.vecs.At(0, 0), Y: pf.vecs.At(1, 0), Z: pf.vecs.At(2, 0)}
	l := r3.Norm(normal)
	if l == 0 || !d3.IsFinite(normal) {
		return r3.Vec{}, 0, false
	}
	sum := vals[0] + vals[1] + vals[2]
	if sum > 0 {
		variation = max(0, vals[0]/sum)
	}
	return r3.Scale(1/l, normal), variation, true
}

// canonical flips n so its largest magnitude component is positive.
// It gives untracked normals a deterministic sign.
func canonical(n r3.Vec) r3.Vec {
	if d3.Comp(n, d3.LongestAxis(n)) < 0 {
		return r3.Scale(-1, n)
	}
	return n
}
