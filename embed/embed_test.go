package embed_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmolodo/Pinocchio/embed"
	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/mesh"
	"github.com/pmolodo/Pinocchio/pack"
	"github.com/pmolodo/Pinocchio/skeleton"
)

const tetOBJ = `
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
f 1 2 4
f 1 4 3
f 4 2 3
f 1 3 2
`

func loadTetField(t *testing.T) *field.Field {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tet.obj")
	if err := os.WriteFile(path, []byte(tetOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := mesh.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return field.New(m, nil)
}

// twoJointSkeleton is the smallest possible reduced tree: a root and one
// child bone, neither a chain-collapse candidate since both joints have
// degree 1.
func twoJointSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skel.txt")
	content := "root 0 0 0 -1\nchild 0 0 0.3 root\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := skeleton.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDiscreteEmbedsTwoJointSkeleton(t *testing.T) {
	f := loadTetField(t)
	lo, hi := f.Bounds()
	g := pack.Pack(f, lo, hi, pack.Options{CellSize: 0.1, MinRadius: 0.02, Slack: 0.05, MaxSpheres: 20}, nil)
	if len(g.Spheres) < 2 {
		t.Skip("not enough packed spheres to embed a two-joint skeleton")
	}

	skel := twoJointSkeleton(t)
	result, err := embed.Discrete(skel, g, nil, nil)
	if err != nil {
		t.Fatalf("Discrete: %v", err)
	}
	if len(result.Site) != 2 || len(result.Positions) != 2 {
		t.Fatalf("got %d sites/%d positions, want 2/2", len(result.Site), len(result.Positions))
	}
	if result.Site[0] == result.Site[1] {
		t.Fatal("root and child were embedded at the same site")
	}
	if math.IsInf(result.Cost.Total, 1) {
		t.Fatal("expected a finite total cost")
	}
}

func TestDiscreteFailsWithoutEnoughSites(t *testing.T) {
	f := loadTetField(t)
	lo, hi := f.Bounds()
	// A single, very restrictive candidate grid: at most one sphere, not
	// enough distinct sites for a two-joint skeleton.
	g := pack.Pack(f, lo, hi, pack.Options{CellSize: 0.5, MinRadius: 0.3, Slack: 0.05, MaxSpheres: 1}, nil)

	skel := twoJointSkeleton(t)
	_, err := embed.Discrete(skel, g, nil, nil)
	if err == nil {
		t.Fatal("expected an error embedding two joints into at most one site")
	}
}

func TestRefineReturnsNonNaNPositions(t *testing.T) {
	f := loadTetField(t)
	lo, hi := f.Bounds()
	g := pack.Pack(f, lo, hi, pack.Options{CellSize: 0.1, MinRadius: 0.02, Slack: 0.05, MaxSpheres: 20}, nil)
	if len(g.Spheres) < 2 {
		t.Skip("not enough packed spheres to embed a two-joint skeleton")
	}

	skel := twoJointSkeleton(t)
	disc, err := embed.Discrete(skel, g, nil, nil)
	if err != nil {
		t.Fatalf("Discrete: %v", err)
	}

	opt := embed.RefineOptions{MaxIterations: 20, BarrierScale: 40}
	refined, err := embed.Refine(skel, f, disc.Positions, opt, nil)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(refined) != 2 {
		t.Fatalf("got %d refined positions, want 2", len(refined))
	}
	for i, p := range refined {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			t.Fatalf("refined position %d is NaN: %v", i, p)
		}
	}
}
