package fieldmesh

import (
	"errors"
	"fmt"
)

var (
	// ErrIrregularFace is returned when a quad face whose last two indices
	// coincide is found while pure quad output is asserted. Extraction
	// with subdivision enabled must never emit such a face.
	ErrIrregularFace = errors.New("irregular face in pure quad mesh")
	// ErrFaceArity is returned when faces do not all share the run's arity.
	ErrFaceArity = errors.New("face arity mismatch")
	// ErrIndexRange is returned for face indices outside [0, nV).
	ErrIndexRange = errors.New("vertex index out of range")
	// ErrNormalCount is returned when normals are present but do not
	// match the number of positions.
	ErrNormalCount = errors.New("normal count does not match position count")
	// ErrScale is returned when reprojection is requested with a
	// non-positive scale.
	ErrScale = errors.New("scale must be positive")
)

// FaceError records the face that caused a configuration error.
type FaceError struct {
	Face int
	Err  error
}

func (e *FaceError) Error() string {
	return fmt.Sprintf("face %d: %s", e.Face, e.Err)
}

func (e *FaceError) Unwrap() error { return e.Err }
