package skeleton

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// LoadFile reads a skeleton from whitespace-delimited rows of
// "name x y z parent_name_or_-1"; positions are doubled on read since
// makeJoint halves them back to the internal [-0.5,0.5] convention.
func LoadFile(path string) (*Skeleton, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("skeleton: opening %s: %w", path, err)
	}
	defer f.Close()
	return readFile(f)
}

func readFile(r io.Reader) (*Skeleton, error) {
	s := newSkeleton()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 {
			continue
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("skeleton: malformed x: %w", err)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("skeleton: malformed y: %w", err)
		}
		z, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("skeleton: malformed z: %w", err)
		}
		parent := fields[4]
		if parent == "-1" {
			parent = ""
		} else if _, ok := s.jointNames[parent]; !ok {
			return nil, fmt.Errorf("skeleton: unknown parent joint %q", parent)
		}
		s.makeJoint(fields[0], r3.Scale(2, r3.Vec{X: x, Y: y, Z: z}), parent)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	s.initCompressed()
	return s, nil
}
