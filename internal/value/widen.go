package value

import "fmt"

// Op is a numeric binary operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
)

var opNames = map[Op]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp resolves an operator from its document spelling.
func ParseOp(s string) (Op, error) {
	for o, name := range opNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown math operator %q", s)
}

// Widen returns the wider of two numeric kinds. Either operand being
// non-numeric is a TypeMismatchError.
func Widen(a, b Kind) (Kind, error) {
	if !a.Numeric() {
		return Invalid, &TypeMismatchError{Expected: "numeric", Got: a.String()}
	}
	if !b.Numeric() {
		return Invalid, &TypeMismatchError{Expected: "numeric", Got: b.String()}
	}
	if a >= b {
		return a, nil
	}
	return b, nil
}

// Apply evaluates op over two numeric values. Both operands are first
// widened to the wider of their kinds; the result carries that kind.
func Apply(op Op, a, b any) (any, error) {
	wide, err := Widen(KindOf(a), KindOf(b))
	if err != nil {
		return nil, err
	}
	if wide >= Float {
		x, y := asDouble(a), asDouble(b)
		var r float64
		switch op {
		case OpAdd:
			r = x + y
		case OpSub:
			r = x - y
		case OpMul:
			r = x * y
		case OpDiv:
			r = x / y
		}
		if wide == Float {
			return float32(r), nil
		}
		return r, nil
	}

	x, y := asLong(a), asLong(b)
	var r int64
	switch op {
	case OpAdd:
		r = x + y
	case OpSub:
		r = x - y
	case OpMul:
		r = x * y
	case OpDiv:
		if y == 0 {
			return nil, fmt.Errorf("integer division by zero")
		}
		r = x / y
	}
	switch wide {
	case Byte:
		return int8(r), nil
	case Short:
		return int16(r), nil
	case Int:
		return int32(r), nil
	default:
		return r, nil
	}
}
