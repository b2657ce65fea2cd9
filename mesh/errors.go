package mesh

import "errors"

// Sentinel errors surfaced by mesh construction and validation, matching
// the error-handling design: malformed input and invalid topology are
// distinct, reportable failure kinds.
var (
	ErrUnknownFormat   = errors.New("mesh: unrecognized file extension")
	ErrMalformedInput  = errors.New("mesh: malformed input")
	ErrVertexOutOfRange = errors.New("mesh: vertex index out of range")
	ErrDuplicateEdge   = errors.New("mesh: duplicate directed half-edge")
	ErrEmptyMesh       = errors.New("mesh: empty mesh")
	ErrNonManifold     = errors.New("mesh: integrity check failed")
	ErrDisconnected    = errors.New("mesh: mesh is not connected")
)
