// Package lsq implements a generic sparse linear least-squares solver
// supporting mixed hard (equality, eliminated by pivoting) and soft
// (least-squares) constraints, wrapping the spd package for the
// normal-equations solve.
package lsq

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pmolodo/Pinocchio/spd"
)

// VarID and ConstraintID are opaque integer handles allocated from a
// System's registry, per the identifier-handle convention: callers never
// see raw indices into internal matrices.
type VarID int
type ConstraintID int

// ErrSingular is returned by Factor when the hard-constraint matrix is
// near-singular. A failed SPD factorization of the soft system is also
// reported by Factor, wrapping spd.ErrSingular.
var ErrSingular = errors.New("lsq: near-singular constraint system")

// ErrNoResult is returned by Result before a successful Solve.
var ErrNoResult = errors.New("lsq: no result available")

type constraint struct {
	hard bool
	lhs  map[VarID]float64
	rhs  float64
}

// System is a sparse least-squares system over opaque variable and
// constraint handles.
type System struct {
	nextVar     VarID
	constraints map[ConstraintID]*constraint
	nextCons    ConstraintID

	// populated by Factor:
	softNum         int
	varIDs          []VarID          // soft-solved vars first, then substituted (hard) vars
	constraintIndex map[ConstraintID]int
	substitutedHard [][]idxWeight
	rhsTransform    [][]idxWeight
	softMatrix      [][]idxWeight
	factored        *spd.LLT

	result map[VarID]float64
}

type idxWeight struct {
	idx int
	w   float64
}

// New returns an empty least-squares system.
func New() *System {
	return &System{constraints: make(map[ConstraintID]*constraint)}
}

// NewVar allocates a fresh variable handle.
func (s *System) NewVar() VarID {
	v := s.nextVar
	s.nextVar++
	return v
}

// AddConstraint registers a row `lhs · x = rhs`. Hard constraints are
// eliminated exactly by pivoting during Factor; soft constraints
// contribute to the least-squares normal equations.
func (s *System) AddConstraint(hard bool, lhs map[VarID]float64, rhs float64) ConstraintID {
	id := s.nextCons
	s.nextCons++
	cp := make(map[VarID]float64, len(lhs))
	for k, v := range lhs {
		cp[k] = v
	}
	s.constraints[id] = &constraint{hard: hard, lhs: cp, rhs: rhs}
	return id
}

// SetRhs updates the right-hand side of a previously added constraint.
// Must be called before Solve; does not require re-Factor unless the
// left-hand side changes.
func (s *System) SetRhs(id ConstraintID, rhs float64) {
	s.constraints[id].rhs = rhs
}

// Factor performs row-reduction on the hard constraints (pivoting on
// |coef|/(rowLen-0.9), the variable/equation pair that yields the
// simplest substitution), then assembles AᵀA from the soft constraints
// (with hard substitutions applied) and factors it via spd. Returns
// ErrSingular if any pivot's magnitude falls below 1e-10.
func (s *System) Factor() error {
	// order constraints deterministically
	ids := make([]ConstraintID, 0, len(s.constraints))
	for id := range s.constraints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.constraintIndex = make(map[ConstraintID]int)
	s.softNum = 0
	for _, id := range ids {
		if !s.constraints[id].hard {
			s.constraintIndex[id] = s.softNum
			s.softNum++
		}
	}

	type hardRow struct {
		id  ConstraintID
		lhs map[VarID]float64
		rhs map[ConstraintID]float64 // linear combination of original constraint rhs's
	}
	var hard []*hardRow
	for _, id := range ids {
		if s.constraints[id].hard {
			lhs := make(map[VarID]float64, len(s.constraints[id].lhs))
			for k, v := range s.constraints[id].lhs {
				lhs[k] = v
			}
			hard = append(hard, &hardRow{id: id, lhs: lhs, rhs: map[ConstraintID]float64{id: 1}})
		}
	}
	hardNum := len(hard)

	substitutions := make(map[VarID]map[VarID]float64)
	substitutionsRhs := make(map[VarID]map[ConstraintID]float64)
	substitutionIdx := make(map[VarID]int)

	for len(hard) > 0 {
		var bestVar VarID
		bestEq := -1
		bestVal := 0.0
	outer:
		for i, row := range hard {
			vars := make([]VarID, 0, len(row.lhs))
			for v := range row.lhs {
				vars = append(vars, v)
			}
			sort.Slice(vars, func(a, b int) bool { return vars[a] < vars[b] }) // deterministic tie-break
			for _, v := range vars {
				coef := row.lhs[v]
				val := math.Abs(coef) / (float64(len(row.lhs)) - 0.9)
				if val > bestVal {
					bestVal = val
					bestEq = i
					bestVar = v
					if val > 0.5 && len(row.lhs) <= 2 {
						break outer
					}
				}
			}
		}
		if bestVal < 1e-10 {
			return ErrSingular
		}

		idx := len(substitutions)
		substitutionIdx[bestVar] = idx
		substitutionsRhs[bestVar] = hard[bestEq].rhs
		s.constraintIndex[hard[bestEq].id] = s.softNum + idx

		last := len(hard) - 1
		hard[bestEq], hard[last] = hard[last], hard[bestEq]
		pivotRow := hard[last]
		factor := -1 / pivotRow.lhs[bestVar]

		curSub := make(map[VarID]float64)
		for v, coef := range pivotRow.lhs {
			if v != bestVar {
				curSub[v] = coef * factor
			}
		}
		curSubRhs := make(map[ConstraintID]float64, len(pivotRow.rhs))
		for c, w := range pivotRow.rhs {
			curSubRhs[c] = w * -factor
		}
		substitutions[bestVar] = curSub
		substitutionsRhs[bestVar] = curSubRhs

		hard = hard[:last]

		for _, row := range hard {
			w, ok := row.lhs[bestVar]
			if !ok {
				continue
			}
			delete(row.lhs, bestVar)
			for v, coef := range curSub {
				row.lhs[v] += coef * w
			}
			for c, weight := range curSubRhs {
				row.rhs[c] -= weight * w
			}
		}
		for v2, sub := range substitutions {
			if v2 == bestVar {
				continue
			}
			w, ok := sub[bestVar]
			if !ok {
				continue
			}
			delete(sub, bestVar)
			for v, coef := range curSub {
				sub[v] += coef * w
			}
			srhs := substitutionsRhs[v2]
			for c, weight := range curSubRhs {
				srhs[c] += weight * w
			}
		}
	}

	// assign indices: soft-constraint variables first, then substituted vars.
	varMap := make(map[VarID]int)
	s.varIDs = nil
	for _, id := range ids {
		c := s.constraints[id]
		if c.hard {
			continue
		}
		for v := range c.lhs {
			if _, ok := varMap[v]; ok {
				continue
			}
			if _, ok := substitutions[v]; ok {
				continue
			}
			varMap[v] = len(s.varIDs)
			s.varIDs = append(s.varIDs, v)
		}
	}
	softVars := len(s.varIDs)
	s.varIDs = append(s.varIDs, make([]VarID, hardNum)...)
	for v, idx := range substitutionIdx {
		varMap[v] = softVars + idx
		s.varIDs[softVars+idx] = v
	}

	s.substitutedHard = make([][]idxWeight, len(substitutions))
	for v, sub := range substitutions {
		idx := substitutionIdx[v]
		row := make([]idxWeight, 0, len(sub))
		for v2, coef := range sub {
			vi, ok := varMap[v2]
			if !ok {
				return fmt.Errorf("%w: variable left free by hard and soft constraints", ErrSingular)
			}
			row = append(row, idxWeight{vi, coef})
		}
		s.substitutedHard[idx] = row
	}

	rhsTransformMap := make([]map[int]float64, hardNum)
	for i := range rhsTransformMap {
		rhsTransformMap[i] = make(map[int]float64)
	}
	s.softMatrix = make([][]idxWeight, s.softNum)
	for _, id := range ids {
		c := s.constraints[id]
		if c.hard {
			continue
		}
		modLhs := make(map[VarID]float64, len(c.lhs))
		for k, v := range c.lhs {
			modLhs[k] = v
		}
		idx := s.constraintIndex[id]
		for v, coef := range c.lhs {
			sub, ok := substitutions[v]
			if !ok {
				continue
			}
			for v2, w := range sub {
				modLhs[v2] += coef * w
			}
			for c2, w := range substitutionsRhs[v] {
				rhsTransformMap[s.constraintIndex[c2]-s.softNum][idx] -= coef * w
			}
		}
		row := make([]idxWeight, 0, len(modLhs))
		for v, coef := range modLhs {
			if _, ok := substitutions[v]; ok {
				continue
			}
			row = append(row, idxWeight{varMap[v], coef})
		}
		sort.Slice(row, func(i, j int) bool { return row[i].idx < row[j].idx })
		s.softMatrix[idx] = row
	}

	for v, rhsSub := range substitutionsRhs {
		idx := substitutionIdx[v] + s.softNum
		for c2, w := range rhsSub {
			rhsTransformMap[s.constraintIndex[c2]-s.softNum][idx] += w
		}
	}
	s.rhsTransform = make([][]idxWeight, hardNum)
	for i, m := range rhsTransformMap {
		row := make([]idxWeight, 0, len(m))
		for idx, w := range m {
			row = append(row, idxWeight{idx, w})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].idx < row[b].idx })
		s.rhsTransform[i] = row
	}

	// AᵀA, lower triangle, over soft-solved variables only.
	spdMap := make([]map[int]float64, softVars)
	for i := range spdMap {
		spdMap[i] = make(map[int]float64)
	}
	for _, row := range s.softMatrix {
		for j := 0; j < len(row); j++ {
			for k := 0; k <= j; k++ {
				spdMap[row[j].idx][row[k].idx] += row[j].w * row[k].w
			}
		}
	}
	rows := make([][]spd.Entry, softVars)
	for i, m := range spdMap {
		row := make([]spd.Entry, 0, len(m))
		for col, v := range m {
			row = append(row, spd.Entry{Col: col, Val: v})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].Col < row[b].Col })
		rows[i] = row
	}

	factored, err := spd.Factor(rows)
	if err != nil {
		return fmt.Errorf("lsq: %w", err)
	}
	s.factored = factored
	return nil
}

// Solve transforms the current right-hand sides through the hard
// constraint substitutions, forms Aᵀb, solves the SPD normal equations,
// and reconstructs the substituted (hard) variables.
func (s *System) Solve() error {
	if s.factored == nil {
		return fmt.Errorf("lsq: Solve called before successful Factor")
	}
	ids := make([]ConstraintID, 0, len(s.constraints))
	for id := range s.constraints {
		ids = append(ids, id)
	}

	rhs0 := make([]float64, s.softNum+len(s.rhsTransform))
	for _, id := range ids {
		idx, ok := s.constraintIndex[id]
		if !ok {
			continue
		}
		rhs0[idx] = s.constraints[id].rhs
	}

	rhs1 := make([]float64, len(rhs0))
	copy(rhs1, rhs0)
	for i := s.softNum; i < len(rhs1); i++ {
		rhs1[i] = 0
	}
	for i, row := range s.rhsTransform {
		for _, e := range row {
			rhs1[e.idx] += e.w * rhs0[s.softNum+i]
		}
	}

	rhs2 := make([]float64, s.factored.Size())
	for i, row := range s.softMatrix {
		for _, e := range row {
			rhs2[e.idx] += e.w * rhs1[i]
		}
	}

	if err := s.factored.Solve(rhs2); err != nil {
		return fmt.Errorf("lsq: %w", err)
	}

	s.result = make(map[VarID]float64, len(s.varIDs))
	for i, v := range s.varIDs[:len(rhs2)] {
		s.result[v] = rhs2[i]
	}

	hardNum := len(s.varIDs) - len(rhs2)
	for i := 0; i < hardNum; i++ {
		cur := rhs1[s.softNum+i]
		for _, e := range s.substitutedHard[i] {
			cur += e.w * rhs2[e.idx]
		}
		s.result[s.varIDs[i+len(rhs2)]] = cur
	}
	return nil
}

// Result returns the solved value for v. Valid only after a successful
// Solve.
func (s *System) Result(v VarID) (float64, error) {
	val, ok := s.result[v]
	if !ok {
		return 0, ErrNoResult
	}
	return val, nil
}
