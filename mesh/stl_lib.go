package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
)

// readSTLAuto sniffs the STL variant and dispatches: ASCII facets (the
// "solid" keyword leads the file) go through readSTL's exact
// vertex-remap/dedup/degenerate-skip path; anything else is assumed to
// be the binary STL layout and decoded with the stl library.
func (m *Mesh) readSTLAuto(r io.Reader) error {
	br := bufio.NewReader(r)
	head, err := br.Peek(5)
	if err == nil && string(head) == "solid" {
		return m.readSTL(br)
	}
	return m.readSTLBinary(br)
}

// readSTLBinary decodes a binary STL solid, remapping axes (y, z, x) the
// same way readSTL does for the ASCII variant, deduplicating vertices by
// exact coordinate equality and skipping degenerate facets.
func (m *Mesh) readSTLBinary(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	vertexIdx := make(map[stlKey]int)
	for _, tri := range solid.Triangles {
		var idxs [3]int
		for i, v := range tri.Vertices {
			cur := stlKey{float64(v[1]), float64(v[2]), float64(v[0])} // remap (y, z, x)
			idx, ok := vertexIdx[cur]
			if !ok {
				idx = len(m.Vertices)
				vertexIdx[cur] = idx
				m.Vertices = append(m.Vertices, Vertex{Pos: r3.Vec{X: cur.x, Y: cur.y, Z: cur.z}})
			}
			idxs[i] = idx
		}
		if idxs[0] == idxs[1] || idxs[1] == idxs[2] || idxs[0] == idxs[2] {
			continue
		}
		m.addTriangle(idxs[0], idxs[1], idxs[2])
	}
	return nil
}
