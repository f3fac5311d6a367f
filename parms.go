package fieldmesh

import (
	"errors"
	"fmt"
	"runtime"
)

// Parms configures adjacency construction and smoothing. The zero value
// smooths nothing: set Iterations to run relaxation passes.
type Parms struct {
	// Iterations is the number of relaxation passes. Zero is the identity.
	Iterations int
	// Scale is the target edge length. Reprojection searches at most
	// Scale/2 along each normal direction.
	Scale float64
	// PoSy is the polygon arity of the mesh faces, 3 or 4. Zero means 4.
	PoSy int
	// PureQuad asserts the quad mesh holds no irregular faces.
	PureQuad bool
	// Crease holds vertices exempt from relaxation.
	Crease map[int]struct{}
	// Oracle is the optional reference surface used for reprojection.
	Oracle Oracle
	// Workers bounds the number of goroutines. Zero means GOMAXPROCS.
	Workers int
	// Grain is the minimum number of faces or vertices per task.
	// Zero means DefaultGrain.
	Grain int
	// Variation requests per vertex surface variation in the result.
	Variation bool
}

func (p *Parms) defaults() {
	if p.PoSy == 0 {
		p.PoSy = 4
	}
	if p.Grain <= 0 {
		p.Grain = DefaultGrain
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
}

func (p *Parms) validate() error {
	switch {
	case p.PoSy != 3 && p.PoSy != 4:
		return fmt.Errorf("unsupported polygon arity %d, want 3 or 4", p.PoSy)
	case p.Iterations < 0:
		return errors.New("negative iteration count")
	case usableOracle(p.Oracle) && !(p.Scale > 0):
		return fmt.Errorf("%w for reprojection, got %g", ErrScale, p.Scale)
	}
	return nil
}

func (p *Parms) isCrease(i int) bool {
	_, ok := p.Crease[i]
	return ok
}
