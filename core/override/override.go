// Package override applies declarative (operator, operand) patches to
// named cost fields. The operator set is a strict allow-list; anything
// outside it is a configuration error, never a silent no-op.
package override

import (
	"gencost/internal/errors"
)

// Op is one of the four supported patch operators.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
)

// opNames maps the settings-file operator vocabulary to operators.
var opNames = map[string]Op{
	"add":     OpAdd,
	"sub":     OpSub,
	"mul":     OpMul,
	"truediv": OpDiv,
}

// opFuncs dispatches each operator to a pure function.
var opFuncs = [...]func(a, b float64) float64{
	OpAdd: func(a, b float64) float64 { return a + b },
	OpSub: func(a, b float64) float64 { return a - b },
	OpMul: func(a, b float64) float64 { return a * b },
	OpDiv: func(a, b float64) float64 { return a / b },
}

// String returns the settings-file name of the operator.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "truediv"
	default:
		return "unknown"
	}
}

// ParseOp resolves an operator name from the allowed set.
func ParseOp(name string) (Op, error) {
	op, ok := opNames[name]
	if !ok {
		return 0, errors.UnsupportedOperator(name)
	}
	return op, nil
}

// Apply computes value <op> operand.
func Apply(value float64, op Op, operand float64) float64 {
	return opFuncs[op](value, operand)
}

// ApplySeries computes value <op> operand elementwise, returning a new
// slice.
func ApplySeries(values []float64, op Op, operand float64) []float64 {
	out := make([]float64, len(values))
	f := opFuncs[op]
	for i, v := range values {
		out[i] = f(v, operand)
	}
	return out
}

// Spec is one declarative patch: rewrite Field as Field <Op> Operand.
type Spec struct {
	// Field names the target column in the row's field registry.
	Field string

	// Op is the patch operator.
	Op Op

	// Operand is the right-hand value.
	Operand float64
}

// FieldResolver resolves a column name to a mutable field. Row types
// expose their numeric columns through a closed registry.
type FieldResolver interface {
	Field(name string) (*float64, bool)
}

// ApplySpec validates the spec's target field and rewrites it in place.
func ApplySpec(row FieldResolver, spec Spec) error {
	target, ok := row.Field(spec.Field)
	if !ok {
		return errors.UnknownField(spec.Field)
	}
	*target = Apply(*target, spec.Op, spec.Operand)
	return nil
}

// ApplySpecs validates every spec's target field before mutating any of
// them, so a bad spec leaves the row untouched.
func ApplySpecs(row FieldResolver, specs []Spec) error {
	targets := make([]*float64, len(specs))
	for i, spec := range specs {
		target, ok := row.Field(spec.Field)
		if !ok {
			return errors.UnknownField(spec.Field)
		}
		targets[i] = target
	}
	for i, spec := range specs {
		*targets[i] = Apply(*targets[i], spec.Op, spec.Operand)
	}
	return nil
}
