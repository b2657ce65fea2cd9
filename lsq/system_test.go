package lsq_test

import (
	"math"
	"testing"

	"github.com/pmolodo/Pinocchio/lsq"
)

func TestHardConstraintEliminatesSoftResidual(t *testing.T) {
	sys := lsq.New()
	x := sys.NewVar()
	y := sys.NewVar()

	sys.AddConstraint(true, map[lsq.VarID]float64{x: 1, y: 1}, 2) // hard: x + y = 2
	sys.AddConstraint(false, map[lsq.VarID]float64{y: 1}, 0)      // soft: y = 0

	if err := sys.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if err := sys.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	gotX, err := sys.Result(x)
	if err != nil {
		t.Fatalf("Result(x): %v", err)
	}
	gotY, err := sys.Result(y)
	if err != nil {
		t.Fatalf("Result(y): %v", err)
	}
	if math.Abs(gotX-2) > 1e-9 {
		t.Fatalf("x = %v, want 2", gotX)
	}
	if math.Abs(gotY-0) > 1e-9 {
		t.Fatalf("y = %v, want 0", gotY)
	}
}

func TestSoftOnlyLeastSquares(t *testing.T) {
	sys := lsq.New()
	x := sys.NewVar()
	y := sys.NewVar()

	sys.AddConstraint(false, map[lsq.VarID]float64{x: 1}, 1)
	sys.AddConstraint(false, map[lsq.VarID]float64{y: 1}, 1)
	sys.AddConstraint(false, map[lsq.VarID]float64{x: 1, y: 1}, 3)

	if err := sys.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if err := sys.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	gotX, _ := sys.Result(x)
	gotY, _ := sys.Result(y)
	want := 4.0 / 3.0
	if math.Abs(gotX-want) > 1e-9 || math.Abs(gotY-want) > 1e-9 {
		t.Fatalf("(x,y) = (%v,%v), want (%v,%v)", gotX, gotY, want, want)
	}
}

func TestSetRhsWithoutRefactor(t *testing.T) {
	sys := lsq.New()
	x := sys.NewVar()
	y := sys.NewVar()

	id := sys.AddConstraint(true, map[lsq.VarID]float64{x: 1, y: 1}, 2)
	sys.AddConstraint(false, map[lsq.VarID]float64{y: 1}, 0)

	if err := sys.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}

	sys.SetRhs(id, 10)
	if err := sys.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	gotX, _ := sys.Result(x)
	if math.Abs(gotX-10) > 1e-9 {
		t.Fatalf("x = %v, want 10 after SetRhs", gotX)
	}
}

func TestResultBeforeSolveFails(t *testing.T) {
	sys := lsq.New()
	x := sys.NewVar()
	if _, err := sys.Result(x); err == nil {
		t.Fatal("expected ErrNoResult before Solve")
	}
}
