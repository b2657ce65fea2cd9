package skeleton

import "gonum.org/v1/gonum/spatial/r3"

// jointSpec is one row of a built-in skeleton's joint table: a named
// joint at pos, attached to parent (""  for the root).
type jointSpec struct {
	name   string
	pos    r3.Vec
	parent string
}

// symSpec pairs two joints as mirror partners.
type symSpec struct{ a, b string }

// skelTable fully describes a built-in skeleton: its joints in
// topological order, its symmetry pairs, and its foot/fat tags. A single
// constructor (fromTable) consumes any table, rather than one subclass per
// skeleton shape.
type skelTable struct {
	joints []jointSpec
	syms   []symSpec
	feet   []string
	fat    []string
}

// fromTable builds a Skeleton from a data table.
func fromTable(t skelTable) *Skeleton {
	s := newSkeleton()
	for _, j := range t.joints {
		s.makeJoint(j.name, j.pos, j.parent)
	}
	for _, sym := range t.syms {
		s.makeSymmetric(sym.a, sym.b)
	}
	s.initCompressed()
	for _, f := range t.feet {
		s.setFoot(f)
	}
	for _, f := range t.fat {
		s.setFat(f)
	}
	return s
}

var humanTable = skelTable{
	joints: []jointSpec{
		{"shoulders", r3.Vec{X: 0, Y: 0.5, Z: 0}, ""},
		{"back", r3.Vec{X: 0, Y: 0.15, Z: 0}, "shoulders"},
		{"hips", r3.Vec{X: 0, Y: 0, Z: 0}, "back"},
		{"head", r3.Vec{X: 0, Y: 0.7, Z: 0}, "shoulders"},

		{"lthigh", r3.Vec{X: -0.1, Y: 0, Z: 0}, "hips"},
		{"lknee", r3.Vec{X: -0.15, Y: -0.35, Z: 0}, "lthigh"},
		{"lankle", r3.Vec{X: -0.15, Y: -0.8, Z: 0}, "lknee"},
		{"lfoot", r3.Vec{X: -0.15, Y: -0.8, Z: 0.1}, "lankle"},

		{"rthigh", r3.Vec{X: 0.1, Y: 0, Z: 0}, "hips"},
		{"rknee", r3.Vec{X: 0.15, Y: -0.35, Z: 0}, "rthigh"},
		{"rankle", r3.Vec{X: 0.15, Y: -0.8, Z: 0}, "rknee"},
		{"rfoot", r3.Vec{X: 0.15, Y: -0.8, Z: 0.1}, "rankle"},

		{"lshoulder", r3.Vec{X: -0.2, Y: 0.5, Z: 0}, "shoulders"},
		{"lelbow", r3.Vec{X: -0.4, Y: 0.25, Z: 0.075}, "lshoulder"},
		{"lhand", r3.Vec{X: -0.6, Y: 0, Z: 0.15}, "lelbow"},

		{"rshoulder", r3.Vec{X: 0.2, Y: 0.5, Z: 0}, "shoulders"},
		{"relbow", r3.Vec{X: 0.4, Y: 0.25, Z: 0.075}, "rshoulder"},
		{"rhand", r3.Vec{X: 0.6, Y: 0, Z: 0.15}, "relbow"},
	},
	syms: []symSpec{
		{"lthigh", "rthigh"}, {"lknee", "rknee"}, {"lankle", "rankle"}, {"lfoot", "rfoot"},
		{"lshoulder", "rshoulder"}, {"lelbow", "relbow"}, {"lhand", "rhand"},
	},
	feet: []string{"lfoot", "rfoot"},
	fat:  []string{"hips", "shoulders", "head"},
}

var quadTable = skelTable{
	joints: []jointSpec{
		{"shoulders", r3.Vec{X: 0, Y: 0, Z: 0.5}, ""},
		{"back", r3.Vec{X: 0, Y: 0, Z: 0}, "shoulders"},
		{"hips", r3.Vec{X: 0, Y: 0, Z: -0.5}, "back"},
		{"neck", r3.Vec{X: 0, Y: 0.2, Z: 0.63}, "shoulders"},
		{"head", r3.Vec{X: 0, Y: 0.2, Z: 0.9}, "neck"},

		{"lthigh", r3.Vec{X: -0.15, Y: 0, Z: -0.5}, "hips"},
		{"lhknee", r3.Vec{X: -0.2, Y: -0.4, Z: -0.5}, "lthigh"},
		{"lhfoot", r3.Vec{X: -0.2, Y: -0.8, Z: -0.5}, "lhknee"},

		{"rthigh", r3.Vec{X: 0.15, Y: 0, Z: -0.5}, "hips"},
		{"rhknee", r3.Vec{X: 0.2, Y: -0.4, Z: -0.5}, "rthigh"},
		{"rhfoot", r3.Vec{X: 0.2, Y: -0.8, Z: -0.5}, "rhknee"},

		{"lshoulder", r3.Vec{X: -0.2, Y: 0, Z: 0.5}, "shoulders"},
		{"lfknee", r3.Vec{X: -0.2, Y: -0.4, Z: 0.5}, "lshoulder"},
		{"lffoot", r3.Vec{X: -0.2, Y: -0.8, Z: 0.5}, "lfknee"},

		{"rshoulder", r3.Vec{X: 0.2, Y: 0, Z: 0.5}, "shoulders"},
		{"rfknee", r3.Vec{X: 0.2, Y: -0.4, Z: 0.5}, "rshoulder"},
		{"rffoot", r3.Vec{X: 0.2, Y: -0.8, Z: 0.5}, "rfknee"},

		{"tail", r3.Vec{X: 0, Y: 0, Z: -0.7}, "hips"},
	},
	syms: []symSpec{
		{"lthigh", "rthigh"}, {"lhknee", "rhknee"}, {"lhfoot", "rhfoot"},
		{"lshoulder", "rshoulder"}, {"lfknee", "rfknee"}, {"lffoot", "rffoot"},
	},
	feet: []string{"lhfoot", "rhfoot", "lffoot", "rffoot"},
	fat:  []string{"hips", "shoulders", "head"},
}

var horseTable = skelTable{
	joints: []jointSpec{
		{"shoulders", r3.Vec{X: 0, Y: 0, Z: 0.5}, ""},
		{"back", r3.Vec{X: 0, Y: 0, Z: 0}, "shoulders"},
		{"hips", r3.Vec{X: 0, Y: 0, Z: -0.5}, "back"},
		{"neck", r3.Vec{X: 0, Y: 0.2, Z: 0.63}, "shoulders"},
		{"head", r3.Vec{X: 0, Y: 0.2, Z: 0.9}, "neck"},

		{"lthigh", r3.Vec{X: -0.15, Y: 0, Z: -0.5}, "hips"},
		{"lhknee", r3.Vec{X: -0.2, Y: -0.2, Z: -0.45}, "lthigh"},
		{"lhheel", r3.Vec{X: -0.2, Y: -0.4, Z: -0.5}, "lhknee"},
		{"lhfoot", r3.Vec{X: -0.2, Y: -0.8, Z: -0.5}, "lhheel"},

		{"rthigh", r3.Vec{X: 0.15, Y: 0, Z: -0.5}, "hips"},
		{"rhknee", r3.Vec{X: 0.2, Y: -0.2, Z: -0.45}, "rthigh"},
		{"rhheel", r3.Vec{X: 0.2, Y: -0.4, Z: -0.5}, "rhknee"},
		{"rhfoot", r3.Vec{X: 0.2, Y: -0.8, Z: -0.5}, "rhheel"},

		{"lshoulder", r3.Vec{X: -0.2, Y: 0, Z: 0.5}, "shoulders"},
		{"lfknee", r3.Vec{X: -0.2, Y: -0.4, Z: 0.5}, "lshoulder"},
		{"lffoot", r3.Vec{X: -0.2, Y: -0.8, Z: 0.5}, "lfknee"},

		{"rshoulder", r3.Vec{X: 0.2, Y: 0, Z: 0.5}, "shoulders"},
		{"rfknee", r3.Vec{X: 0.2, Y: -0.4, Z: 0.5}, "rshoulder"},
		{"rffoot", r3.Vec{X: 0.2, Y: -0.8, Z: 0.5}, "rfknee"},

		{"tail", r3.Vec{X: 0, Y: 0, Z: -0.7}, "hips"},
	},
	syms: []symSpec{
		{"lthigh", "rthigh"}, {"lhknee", "rhknee"}, {"lhheel", "rhheel"}, {"lhfoot", "rhfoot"},
		{"lshoulder", "rshoulder"}, {"lfknee", "rfknee"}, {"lffoot", "rffoot"},
	},
	feet: []string{"lhfoot", "rhfoot", "lffoot", "rffoot"},
	fat:  []string{"hips", "shoulders", "head"},
}

var centaurTable = skelTable{
	joints: []jointSpec{
		{"shoulders", r3.Vec{X: 0, Y: 0, Z: 0.5}, ""},
		{"back", r3.Vec{X: 0, Y: 0, Z: 0}, "shoulders"},
		{"hips", r3.Vec{X: 0, Y: 0, Z: -0.5}, "back"},

		{"hback", r3.Vec{X: 0, Y: 0.25, Z: 0.5}, "shoulders"},
		{"hshoulders", r3.Vec{X: 0, Y: 0.5, Z: 0.5}, "hback"},
		{"head", r3.Vec{X: 0, Y: 0.7, Z: 0.5}, "hshoulders"},

		{"lthigh", r3.Vec{X: -0.15, Y: 0, Z: -0.5}, "hips"},
		{"lhknee", r3.Vec{X: -0.2, Y: -0.4, Z: -0.45}, "lthigh"},
		{"lhfoot", r3.Vec{X: -0.2, Y: -0.8, Z: -0.5}, "lhknee"},

		{"rthigh", r3.Vec{X: 0.15, Y: 0, Z: -0.5}, "hips"},
		{"rhknee", r3.Vec{X: 0.2, Y: -0.4, Z: -0.45}, "rthigh"},
		{"rhfoot", r3.Vec{X: 0.2, Y: -0.8, Z: -0.5}, "rhknee"},

		{"lshoulder", r3.Vec{X: -0.2, Y: 0, Z: 0.5}, "shoulders"},
		{"lfknee", r3.Vec{X: -0.2, Y: -0.4, Z: 0.5}, "lshoulder"},
		{"lffoot", r3.Vec{X: -0.2, Y: -0.8, Z: 0.5}, "lfknee"},

		{"rshoulder", r3.Vec{X: 0.2, Y: 0, Z: 0.5}, "shoulders"},
		{"rfknee", r3.Vec{X: 0.2, Y: -0.4, Z: 0.5}, "rshoulder"},
		{"rffoot", r3.Vec{X: 0.2, Y: -0.8, Z: 0.5}, "rfknee"},

		{"hlshoulder", r3.Vec{X: -0.2, Y: 0.5, Z: 0.5}, "hshoulders"},
		{"lelbow", r3.Vec{X: -0.4, Y: 0.25, Z: 0.575}, "hlshoulder"},
		{"lhand", r3.Vec{X: -0.6, Y: 0, Z: 0.65}, "lelbow"},

		{"hrshoulder", r3.Vec{X: 0.2, Y: 0.5, Z: 0.5}, "hshoulders"},
		{"relbow", r3.Vec{X: 0.4, Y: 0.25, Z: 0.575}, "hrshoulder"},
		{"rhand", r3.Vec{X: 0.6, Y: 0, Z: 0.65}, "relbow"},

		{"tail", r3.Vec{X: 0, Y: 0, Z: -0.7}, "hips"},
	},
	// Note: the original source also lists a ("lhheel","rhheel") symmetry
	// pair here, copied from HorseSkeleton's table, but CentaurSkeleton has
	// no heel joints -- omitted as a carried-over table bug rather than
	// replicated.
	syms: []symSpec{
		{"lthigh", "rthigh"}, {"lhknee", "rhknee"}, {"lhfoot", "rhfoot"},
		{"lshoulder", "rshoulder"}, {"lfknee", "rfknee"}, {"lffoot", "rffoot"},
		{"hlshoulder", "hrshoulder"}, {"lelbow", "relbow"}, {"lhand", "rhand"},
	},
	feet: []string{"lhfoot", "rhfoot", "lffoot", "rffoot"},
	fat:  []string{"hips", "shoulders", "hshoulders", "head"},
}

// Human returns the built-in 18-joint human skeleton.
func Human() *Skeleton { return fromTable(humanTable) }

// Quad returns the built-in 18-joint generic quadruped skeleton.
func Quad() *Skeleton { return fromTable(quadTable) }

// Horse returns the built-in 20-joint horse skeleton (with heel joints).
func Horse() *Skeleton { return fromTable(horseTable) }

// Centaur returns the built-in 25-joint centaur skeleton (horse body with
// a human torso grafted on).
func Centaur() *Skeleton { return fromTable(centaurTable) }
