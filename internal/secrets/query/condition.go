// Package query implements the predicate algebra used to select secret versions without
// decrypting them.
//
// A query combines an optional KeyCondition, honored by stores as a partition or range
// lookup, with attribute Conditions evaluated record by record over the plaintext fields
// state, not_before and not_after. Streams apply ordering, reverse and unique-primary-key
// deduplication on top.
package query

import (
	"fmt"
	"time"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
)

// Op is a comparison operator.
type Op uint8

const (
	OpEq Op = iota + 1
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

func (o Op) compare(a, b int64) bool {
	switch o {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		return false
	}
}

func (o Op) compareUint(a, b uint64) bool {
	switch o {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		return false
	}
}

// Attribute is a plaintext, non-key field of a RawSecretEntry.
type Attribute uint8

const (
	AttrState Attribute = iota + 1
	AttrNotBefore
	AttrNotAfter
)

func (a Attribute) String() string {
	switch a {
	case AttrState:
		return "state"
	case AttrNotBefore:
		return "not_before"
	case AttrNotAfter:
		return "not_after"
	default:
		return fmt.Sprintf("attribute(%d)", uint8(a))
	}
}

// value extracts the attribute as an integer. Timestamps compare as epoch seconds.
func (a Attribute) value(e *domain.RawSecretEntry) (int64, bool) {
	switch a {
	case AttrState:
		return int64(e.State), true
	case AttrNotBefore:
		if e.NotBefore == nil {
			return 0, false
		}
		return e.NotBefore.Unix(), true
	case AttrNotAfter:
		if e.NotAfter == nil {
			return 0, false
		}
		return e.NotAfter.Unix(), true
	default:
		return 0, false
	}
}

// Condition is an attribute predicate. Time dependent conditions read now, which the
// evaluating Stream samples once per evaluation.
type Condition interface {
	Matches(e *domain.RawSecretEntry, now time.Time) bool
	String() string
}

type compareCondition struct {
	attr  Attribute
	op    Op
	value int64
}

func (c compareCondition) Matches(e *domain.RawSecretEntry, _ time.Time) bool {
	v, ok := c.attr.value(e)
	if !ok {
		return false
	}
	return c.op.compare(v, c.value)
}

func (c compareCondition) String() string {
	if c.attr == AttrState {
		return fmt.Sprintf("state %s %s", c.op, domain.State(c.value))
	}
	return fmt.Sprintf("%s %s %d", c.attr, c.op, c.value)
}

// StateIs matches entries in state s.
func StateIs(s domain.State) Condition {
	return compareCondition{attr: AttrState, op: OpEq, value: int64(s)}
}

// CompareState compares the state of an entry with s.
func CompareState(op Op, s domain.State) Condition {
	return compareCondition{attr: AttrState, op: op, value: int64(s)}
}

// CompareTime compares a timestamp attribute with t. Entries where the attribute is
// absent never match.
func CompareTime(attr Attribute, op Op, t time.Time) Condition {
	return compareCondition{attr: attr, op: op, value: t.Unix()}
}

type presenceCondition struct {
	attr    Attribute
	present bool
}

func (c presenceCondition) Matches(e *domain.RawSecretEntry, _ time.Time) bool {
	_, ok := c.attr.value(e)
	return ok == c.present
}

func (c presenceCondition) String() string {
	if c.present {
		return fmt.Sprintf("present(%s)", c.attr)
	}
	return fmt.Sprintf("absent(%s)", c.attr)
}

// Present matches entries where attr is set.
func Present(attr Attribute) Condition {
	return presenceCondition{attr: attr, present: true}
}

// Absent matches entries where attr is not set.
func Absent(attr Attribute) Condition {
	return presenceCondition{attr: attr, present: false}
}

type andCondition []Condition

func (c andCondition) Matches(e *domain.RawSecretEntry, now time.Time) bool {
	for _, cond := range c {
		if !cond.Matches(e, now) {
			return false
		}
	}
	return true
}

func (c andCondition) String() string { return join("AND", c) }

type orCondition []Condition

func (c orCondition) Matches(e *domain.RawSecretEntry, now time.Time) bool {
	for _, cond := range c {
		if cond.Matches(e, now) {
			return true
		}
	}
	return false
}

func (c orCondition) String() string { return join("OR", c) }

// And matches when every condition matches. An empty And matches everything.
func And(conds ...Condition) Condition {
	if len(conds) == 1 {
		return conds[0]
	}
	return andCondition(conds)
}

// Or matches when any condition matches. An empty Or matches nothing.
func Or(conds ...Condition) Condition {
	if len(conds) == 1 {
		return conds[0]
	}
	return orCondition(conds)
}

type notCondition struct {
	cond Condition
}

func (c notCondition) Matches(e *domain.RawSecretEntry, now time.Time) bool {
	return !c.cond.Matches(e, now)
}

func (c notCondition) String() string { return "NOT (" + c.cond.String() + ")" }

// Not negates cond.
func Not(cond Condition) Condition {
	return notCondition{cond: cond}
}

type activeCondition struct{}

func (activeCondition) Matches(e *domain.RawSecretEntry, now time.Time) bool {
	return e.IsActive(now)
}

func (activeCondition) String() string { return "active()" }

// Active matches entries that are enabled and inside their validity window at the time
// of evaluation:
//
//	state = ENABLED AND (absent(not_before) OR not_before <= now)
//	                AND (absent(not_after) OR not_after >= now)
func Active() Condition {
	return activeCondition{}
}

// ActiveAt is Active with a fixed evaluation time, expressed with the algebra's
// primitives.
func ActiveAt(t time.Time) Condition {
	return And(
		StateIs(domain.StateEnabled),
		Or(Absent(AttrNotBefore), CompareTime(AttrNotBefore, OpLe, t)),
		Or(Absent(AttrNotAfter), CompareTime(AttrNotAfter, OpGe, t)),
	)
}

func join(op string, conds []Condition) string {
	if len(conds) == 0 {
		if op == "AND" {
			return "true"
		}
		return "false"
	}
	s := "("
	for i, c := range conds {
		if i > 0 {
			s += " " + op + " "
		}
		s += c.String()
	}
	return s + ")"
}
