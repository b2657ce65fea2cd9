// Command pinorig runs the mesh-conditioning, embedding and attachment
// pipeline end to end: load a mesh, embed a skeleton inside it, solve
// for skinning weights, and persist skeleton.out/attachment.out.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/attach"
	"github.com/pmolodo/Pinocchio/embed"
	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/internal/xform"
	"github.com/pmolodo/Pinocchio/mesh"
	"github.com/pmolodo/Pinocchio/pack"
	"github.com/pmolodo/Pinocchio/skeleton"
)

type rotationFlags []float64

func (r *rotationFlags) String() string { return fmt.Sprint(*r) }
func (r *rotationFlags) Set(v string) error {
	var x, y, z, deg float64
	if _, err := fmt.Sscanf(v, "%f,%f,%f,%f", &x, &y, &z, &deg); err != nil {
		return fmt.Errorf("rotation must be \"x,y,z,degrees\": %w", err)
	}
	*r = append(*r, x, y, z, deg)
	return nil
}

func main() {
	var (
		skelName   = flag.String("skel", "human", "built-in skeleton name (human, quad, horse, centaur)")
		skelFile   = flag.String("skelfile", "", "load skeleton from a file instead of a built-in")
		scale      = flag.Float64("scale", 1, "uniform scale applied to the skeleton before embedding")
		stopMesh   = flag.Bool("stopaftermesh", false, "stop after loading and conditioning the mesh")
		stopPack   = flag.Bool("stopafterpack", false, "stop after sphere packing")
		noFit      = flag.Bool("nofit", false, "skip discrete/continuous fitting; place skeleton at its template positions")
		outSkel    = flag.String("o", "skeleton.out", "output path for the embedded skeleton")
		outAttach  = flag.String("oa", "attachment.out", "output path for the attachment weights")
	)
	var rotations rotationFlags
	flag.Var(&rotations, "rot", "rotation \"x,y,z,degrees\" applied to the skeleton before embedding; repeatable")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: pinorig [options] mesh-file")
		os.Exit(2)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	if err := run(flag.Arg(0), *skelName, *skelFile, *scale, rotations, *stopMesh, *stopPack, *noFit, *outSkel, *outAttach, log); err != nil {
		log.Error("pipeline failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(meshPath, skelName, skelFile string, scale float64, rotations rotationFlags, stopMesh, stopPack, noFit bool, outSkel, outAttach string, log *zap.Logger) error {
	m, err := mesh.Load(meshPath, log)
	if err != nil {
		return fmt.Errorf("loading mesh: %w", err)
	}
	if !m.IsConnected() {
		return mesh.ErrDisconnected
	}
	m.NormalizeBoundingBox()
	if stopMesh {
		return nil
	}

	skel, err := loadSkeleton(skelName, skelFile)
	if err != nil {
		return err
	}
	for i := 0; i < len(rotations); i += 4 {
		axis := r3.Unit(r3.Vec{X: rotations[i], Y: rotations[i+1], Z: rotations[i+2]})
		rad := rotations[i+3] * math.Pi / 180
		q := r3.Rotation{Real: math.Cos(rad / 2)}
		s := math.Sin(rad / 2)
		q.Imag, q.Jmag, q.Kmag = axis.X*s, axis.Y*s, axis.Z*s
		rot := xform.Compose(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, q)
		skel.ApplyRotation(rot.Apply)
	}
	skel.Scale(scale)

	f := field.New(m, log)
	lo, hi := f.Bounds()
	graph := pack.Pack(f, lo, hi, pack.DefaultOptions(), log)
	if stopPack {
		return nil
	}

	vis := field.NewVisibilityTester(f)

	var positions []r3.Vec
	if noFit {
		reduced := skel.ReducedGraph()
		positions = make([]r3.Vec, len(reduced.Verts))
		for i, v := range reduced.Verts {
			positions[i] = m.NormalizePoint(v)
		}
	} else {
		disc, err := embed.Discrete(skel, graph, vis, log)
		if err != nil {
			return fmt.Errorf("discrete embedding: %w", err)
		}
		positions, err = embed.Refine(skel, f, disc.Positions, embed.DefaultRefineOptions(), log)
		if err != nil {
			return fmt.Errorf("continuous refinement: %w", err)
		}
	}

	if err := writeSkeleton(outSkel, m, skel, positions); err != nil {
		return fmt.Errorf("writing skeleton: %w", err)
	}

	bones := attach.BonesFromSkeleton(skel, positions)
	a, err := attach.Build(m, bones, vis, log)
	if err != nil {
		return fmt.Errorf("attachment: %w", err)
	}
	if err := writeAttachment(outAttach, a, len(bones)); err != nil {
		return fmt.Errorf("writing attachment: %w", err)
	}
	return nil
}

func loadSkeleton(name, file string) (*skeleton.Skeleton, error) {
	if file != "" {
		return skeleton.LoadFile(file)
	}
	switch strings.ToLower(name) {
	case "human":
		return skeleton.Human(), nil
	case "quad":
		return skeleton.Quad(), nil
	case "horse":
		return skeleton.Horse(), nil
	case "centaur":
		return skeleton.Centaur(), nil
	default:
		return nil, fmt.Errorf("unknown built-in skeleton %q", name)
	}
}

func writeSkeleton(path string, m *mesh.Mesh, skel *skeleton.Skeleton, positions []r3.Vec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	for i, p := range positions {
		orig := m.UnnormalizePoint(p)
		parent := skel.ReducedParent(i)
		fmt.Fprintf(w, "%d %f %f %f %d\n", i, orig.X, orig.Y, orig.Z, parent)
	}
	return nil
}

func writeAttachment(path string, a *attach.Attachment, numBones int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	for _, entries := range a.Weights {
		dense := make([]float64, numBones)
		for _, e := range entries {
			dense[e.Bone] = e.Weight
		}
		parts := make([]string, numBones)
		for i, v := range dense {
			parts[i] = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
	return nil
}
