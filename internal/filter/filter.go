// filter narrows the image list to the subset matching a named mode or a
// custom class-count query. Set-membership modes run off the index alone;
// geometry and count modes read label files through the store.
package filter

import (
	"github.com/lewtec/yolomark/internal/domain"
	"github.com/lewtec/yolomark/internal/index"
	"github.com/lewtec/yolomark/internal/store"
)

// Kind selects one of the built-in filter modes.
type Kind int

const (
	All Kind = iota
	Unannotated
	Overlapping
	Suspicious
	HasClass
	MissingClass
	OnlyClass
	Query
)

// Op compares a per-class annotation count against a condition's threshold.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

// Logic says how a condition combines with the running result to its left.
type Logic int

const (
	LogicAnd Logic = iota
	LogicOr
)

// Condition is one clause of a custom query: compare the number of
// annotations of Class on the image against Count. Logic is ignored on the
// first condition.
type Condition struct {
	Class int
	Op    Op
	Count int
	Logic Logic
}

func (c Condition) holds(counts map[int]int) bool {
	n := counts[c.Class]
	switch c.Op {
	case OpEq:
		return n == c.Count
	case OpNe:
		return n != c.Count
	case OpLt:
		return n < c.Count
	case OpGt:
		return n > c.Count
	case OpLe:
		return n <= c.Count
	case OpGe:
		return n >= c.Count
	}
	return false
}

// Mode is a fully resolved filter: a kind, plus the class it targets (for
// HasClass/MissingClass/OnlyClass) or the condition list (for Query).
type Mode struct {
	Kind       Kind
	Class      int
	Conditions []Condition
}

// Engine evaluates filter modes. OverlapIoU feeds the Overlapping mode;
// IncludeTiny and TinyExclude configure the Suspicious mode.
type Engine struct {
	index *index.Index
	store *store.Store

	OverlapIoU  float64
	IncludeTiny bool
	TinyExclude map[int]bool
}

func NewEngine(ix *index.Index, st *store.Store) *Engine {
	return &Engine{
		index:       ix,
		store:       st,
		OverlapIoU:  0.3,
		IncludeTiny: true,
	}
}

// Matches reports whether one image passes the mode. Unreadable label files
// behave as zero annotations, same as everywhere else in the engine.
func (e *Engine) Matches(path string, m Mode) bool {
	switch m.Kind {
	case All:
		return true
	case Unannotated:
		return len(e.index.Classes(path)) == 0
	case HasClass:
		return e.index.Classes(path)[m.Class]
	case MissingClass:
		set := e.index.Classes(path)
		return len(set) > 0 && !set[m.Class]
	case OnlyClass:
		set := e.index.Classes(path)
		return len(set) == 1 && set[m.Class]
	case Overlapping:
		return domain.HasOverlaps(e.load(path), e.OverlapIoU)
	case Suspicious:
		return domain.Suspicious(e.load(path), e.IncludeTiny, e.TinyExclude)
	case Query:
		return e.matchQuery(path, m.Conditions)
	}
	return false
}

// Apply filters a path list in order, preserving the input ordering.
func (e *Engine) Apply(paths []string, m Mode) []string {
	if m.Kind == All {
		return paths
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if e.Matches(p, m) {
			out = append(out, p)
		}
	}
	return out
}

// matchQuery folds the conditions left to right with no precedence. An
// empty condition list matches nothing.
func (e *Engine) matchQuery(path string, conds []Condition) bool {
	if len(conds) == 0 {
		return false
	}
	counts := domain.ClassCounts(e.load(path))
	result := conds[0].holds(counts)
	for _, c := range conds[1:] {
		if c.Logic == LogicAnd {
			result = result && c.holds(counts)
		} else {
			result = result || c.holds(counts)
		}
	}
	return result
}

func (e *Engine) load(path string) []domain.Annotation {
	anns, _, err := e.store.Load(path)
	if err != nil {
		return nil
	}
	return anns
}
