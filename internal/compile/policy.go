package compile

import (
	"sort"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/shared"
)

type policyKind uint8

const (
	suppressNone policyKind = iota
	suppressAll
	suppressSet
)

// Policy selects which default updates a compiled function ignores. It
// never affects explicit updates. The zero Policy suppresses nothing.
type Policy struct {
	kind  policyKind
	cells map[shared.ID]string
}

// SuppressNone applies every reachable default update.
func SuppressNone() Policy { return Policy{} }

// SuppressAll ignores every default update.
func SuppressAll() Policy { return Policy{kind: suppressAll} }

// SuppressCells ignores the default updates of the given cells only.
func SuppressCells(cells ...*shared.Cell) Policy {
	p := Policy{kind: suppressSet, cells: make(map[shared.ID]string, len(cells))}
	for _, c := range cells {
		p.cells[c.ID()] = c.String()
	}
	return p
}

// ParsePolicy converts the loosely typed forms accepted by Options into a
// Policy: nil or false suppress nothing, true suppresses everything, and a
// slice, set or bool map of cells suppresses those cells. Anything else,
// including a single bare cell, is rejected with ErrBadOverridePolicy.
func ParsePolicy(v any) (Policy, error) {
	switch x := v.(type) {
	case nil:
		return SuppressNone(), nil
	case Policy:
		return x, nil
	case bool:
		if x {
			return SuppressAll(), nil
		}
		return SuppressNone(), nil
	case []*shared.Cell:
		for _, c := range x {
			if c == nil {
				return Policy{}, errorf(ErrBadOverridePolicy, "nil cell in list")
			}
		}
		return SuppressCells(x...), nil
	case map[*shared.Cell]struct{}:
		cells := make([]*shared.Cell, 0, len(x))
		for c := range x {
			cells = append(cells, c)
		}
		return ParsePolicy(cells)
	case map[*shared.Cell]bool:
		cells := make([]*shared.Cell, 0, len(x))
		for c, on := range x {
			if on {
				cells = append(cells, c)
			}
		}
		return ParsePolicy(cells)
	case *shared.Cell:
		return Policy{}, errorf(ErrBadOverridePolicy, "got a single cell %s; wrap it in a list", x)
	default:
		return Policy{}, errorf(ErrBadOverridePolicy, "expected a bool or a collection of cells, got %T", v)
	}
}

// Suppresses reports whether c's default update is ignored.
func (p Policy) Suppresses(c *shared.Cell) bool {
	switch p.kind {
	case suppressAll:
		return true
	case suppressSet:
		_, ok := p.cells[c.ID()]
		return ok
	default:
		return false
	}
}

func (p Policy) String() string {
	switch p.kind {
	case suppressAll:
		return "all"
	case suppressSet:
		names := make([]string, 0, len(p.cells))
		for _, n := range p.cells {
			names = append(names, n)
		}
		sort.Strings(names)
		return "[" + strings.Join(names, ", ") + "]"
	default:
		return "none"
	}
}
