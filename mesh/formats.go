package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Load reads a mesh from file, dispatching on its extension (.obj, .ply,
// .off, .gts, .stl), then runs the fixup pipeline: validate vertex
// indices, remove duplicate faces, build topology, check integrity,
// compute normals.
func Load(path string, log *zap.Logger) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: opening %s: %w", path, err)
	}
	defer f.Close()

	m := New(log)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".obj":
		err = m.readOBJ(f)
	case ".ply":
		err = m.readPLY(f)
	case ".off":
		err = m.readOFF(f)
	case ".gts":
		err = m.readGTS(f)
	case ".stl":
		err = m.readSTLAuto(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	if len(m.Vertices) == 0 {
		return nil, ErrEmptyMesh
	}
	for _, e := range m.Edges {
		if e.Vertex < 0 || e.Vertex >= len(m.Vertices) {
			return nil, fmt.Errorf("%w: %d", ErrVertexOutOfRange, e.Vertex)
		}
	}

	m.FixDupFaces()
	if err := m.ComputeTopology(); err != nil {
		return nil, err
	}
	if err := m.IntegrityCheck(); err != nil {
		return nil, err
	}
	m.ComputeVertexNormals()
	m.log.Info("loaded mesh", zap.String("path", path), zap.Int("vertices", len(m.Vertices)), zap.Int("edges", len(m.Edges)))
	return m, nil
}

// readWords splits a line into whitespace-separated tokens.
func readWords(line string) []string {
	return strings.Fields(line)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func eachLine(r io.Reader, f func(words []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<24)
	for sc.Scan() {
		words := readWords(sc.Text())
		if len(words) == 0 {
			continue
		}
		if words[0][0] == '#' {
			continue
		}
		if err := f(words); err != nil {
			return err
		}
	}
	return sc.Err()
}

// readOBJ parses "v x y z" and "f i1 i2 ... ik" records (1-based indices),
// fan-triangulating faces with more than 3 vertices.
func (m *Mesh) readOBJ(r io.Reader) error {
	return eachLine(r, func(words []string) error {
		switch {
		case len(words[0]) == 1 && words[0][0] == 'v':
			if len(words) != 4 {
				return fmt.Errorf("%w: malformed v record", ErrMalformedInput)
			}
			m.Vertices = append(m.Vertices, Vertex{Pos: r3.Vec{
				X: parseFloat(words[1]), Y: parseFloat(words[2]), Z: parseFloat(words[3]),
			}})
		case len(words[0]) == 1 && words[0][0] == 'f':
			if len(words) < 4 || len(words) > 15 {
				return fmt.Errorf("%w: malformed f record", ErrMalformedInput)
			}
			idx := make([]int, len(words)-1)
			for i := range idx {
				idx[i] = parseInt(words[i+1]) - 1
			}
			for j := 2; j < len(idx); j++ {
				m.addTriangle(idx[0], idx[j-1], idx[j])
			}
		}
		return nil
	})
}

// readPLY parses the ASCII PLY subset: a header with one
// "element vertex N" line ending in "end_header", N vertex lines, then
// triangles as "3 a b c" with 0-based indices. Vertices are remapped
// (-z, x, -y).
func (m *Mesh) readPLY(r io.Reader) error {
	outOfHeader := false
	vertsLeft := -1
	return eachLine(r, func(words []string) error {
		if !outOfHeader {
			if words[0] == "end_header" {
				if vertsLeft < 0 {
					return fmt.Errorf("%w: no vertex count in header", ErrMalformedInput)
				}
				outOfHeader = true
				return nil
			}
			if len(words) >= 3 && words[0] == "element" && words[1] == "vertex" {
				vertsLeft = parseInt(words[2])
			}
			return nil
		}
		if vertsLeft > 0 {
			vertsLeft--
			if len(words) < 3 {
				return fmt.Errorf("%w: malformed vertex line", ErrMalformedInput)
			}
			x, y, z := parseFloat(words[0]), parseFloat(words[1]), parseFloat(words[2])
			m.Vertices = append(m.Vertices, Vertex{Pos: r3.Vec{X: -z, Y: x, Z: -y}})
			return nil
		}
		if len(words) != 4 {
			return fmt.Errorf("%w: malformed face line", ErrMalformedInput)
		}
		m.addTriangle(parseInt(words[1]), parseInt(words[2]), parseInt(words[3]))
		return nil
	})
}

// readOFF parses OFF: first non-header line begins with the vertex count,
// N vertex lines follow, then triangles as "3 a b c", 0-based.
func (m *Mesh) readOFF(r io.Reader) error {
	outOfHeader := false
	vertsLeft := -1
	return eachLine(r, func(words []string) error {
		if !outOfHeader {
			if len(words) < 3 {
				return nil
			}
			vertsLeft = parseInt(words[0])
			outOfHeader = true
			return nil
		}
		if vertsLeft > 0 {
			vertsLeft--
			if len(words) < 3 {
				return fmt.Errorf("%w: malformed vertex line", ErrMalformedInput)
			}
			m.Vertices = append(m.Vertices, Vertex{Pos: r3.Vec{
				X: parseFloat(words[0]), Y: parseFloat(words[1]), Z: parseFloat(words[2]),
			}})
			return nil
		}
		if len(words) != 4 {
			return fmt.Errorf("%w: malformed face line", ErrMalformedInput)
		}
		m.addTriangle(parseInt(words[1]), parseInt(words[2]), parseInt(words[3]))
		return nil
	})
}

// readGTS parses GTS: header has vertex and edge counts, vertices are
// remapped (-x, z, y), the edge section lists 1-based endpoint pairs, and
// triangles reference three edges reconstructed by matching shared
// endpoints.
func (m *Mesh) readGTS(r io.Reader) error {
	outOfHeader := false
	vertsLeft, edgesLeft := -1, -1
	type pair struct{ a, b int }
	var fedges []pair

	return eachLine(r, func(words []string) error {
		if !outOfHeader {
			if len(words) < 3 {
				return nil
			}
			vertsLeft = parseInt(words[0])
			edgesLeft = parseInt(words[1])
			outOfHeader = true
			return nil
		}
		if vertsLeft > 0 {
			vertsLeft--
			if len(words) < 3 {
				return fmt.Errorf("%w: malformed vertex line", ErrMalformedInput)
			}
			x, y, z := parseFloat(words[0]), parseFloat(words[1]), parseFloat(words[2])
			m.Vertices = append(m.Vertices, Vertex{Pos: r3.Vec{X: -x, Y: z, Z: y}})
			return nil
		}
		if edgesLeft > 0 {
			edgesLeft--
			if len(words) != 2 {
				return fmt.Errorf("%w: malformed edge line", ErrMalformedInput)
			}
			fedges = append(fedges, pair{parseInt(words[0]) - 1, parseInt(words[1]) - 1})
			return nil
		}
		if len(words) != 3 {
			return fmt.Errorf("%w: malformed face line", ErrMalformedInput)
		}
		a := [3]int{parseInt(words[0]) - 1, parseInt(words[1]) - 1, parseInt(words[2]) - 1}
		for _, ei := range a {
			if ei < 0 || ei >= len(fedges) {
				return fmt.Errorf("%w: face references edge %d", ErrMalformedInput, ei+1)
			}
		}
		first := len(m.Edges)
		m.Edges = append(m.Edges, HalfEdge{}, HalfEdge{}, HalfEdge{})
		for i := 0; i < 3; i++ {
			ni := (i + 1) % 3
			e1, e2 := fedges[a[i]], fedges[a[ni]]
			var v int
			switch {
			case e1.a == e2.a, e1.a == e2.b:
				v = e1.a
			case e1.b == e2.a, e1.b == e2.b:
				v = e1.b
			}
			m.Edges[first+i].Vertex = v
		}
		return nil
	})
}

// stlKey is an exact-float vertex key for STL's vertex dedup.
type stlKey struct{ x, y, z float64 }

// readSTL parses ASCII STL: "vertex x y z" lines grouped in 3s per facet,
// remapped (y, z, x); vertices deduplicated by exact float equality;
// degenerate triangles (a repeated vertex) are skipped.
func (m *Mesh) readSTL(r io.Reader) error {
	vertexIdx := make(map[stlKey]int)
	var lastIdxs []int

	return eachLine(r, func(words []string) error {
		switch words[0] {
		case "vertex":
			if len(words) != 4 {
				return fmt.Errorf("%w: malformed vertex line", ErrMalformedInput)
			}
			fx, fy, fz := parseFloat(words[1]), parseFloat(words[2]), parseFloat(words[3])
			cur := stlKey{fy, fz, fx} // remap (y, z, x)
			idx, ok := vertexIdx[cur]
			if !ok {
				idx = len(m.Vertices)
				vertexIdx[cur] = idx
				m.Vertices = append(m.Vertices, Vertex{Pos: r3.Vec{X: cur.x, Y: cur.y, Z: cur.z}})
			}
			lastIdxs = append(lastIdxs, idx)
			if len(lastIdxs) > 3 {
				lastIdxs = lastIdxs[1:]
			}
		case "endfacet":
			if len(lastIdxs) < 3 {
				return nil
			}
			if lastIdxs[0] == lastIdxs[1] || lastIdxs[1] == lastIdxs[2] || lastIdxs[0] == lastIdxs[2] {
				return nil // degenerate triangle, skipped
			}
			m.addTriangle(lastIdxs[0], lastIdxs[1], lastIdxs[2])
		}
		return nil
	})
}

// WriteOBJ writes the mesh as an OBJ file with 1-based face indices.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(bw, "v %v %v %v\n", v.Pos.X, v.Pos.Y, v.Pos.Z); err != nil {
			return err
		}
	}
	for i := 0; i < len(m.Edges); i += 3 {
		if _, err := fmt.Fprintf(bw, "f %d %d %d\n", m.Edges[i].Vertex+1, m.Edges[i+1].Vertex+1, m.Edges[i+2].Vertex+1); err != nil {
			return err
		}
	}
	return bw.Flush()
}
