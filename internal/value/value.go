// Package value implements the runtime value model for graph evaluation:
// numeric kinds, widening, binary arithmetic, and the canonical key form
// used by branch and select matching.
package value

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Kind classifies a runtime value. The numeric kinds form a total widening
// order: Byte < Short < Int < Long < Float < Double.
type Kind int

const (
	Invalid Kind = iota
	Bool
	Byte
	Short
	Int
	Long
	Float
	Double
	String
	Map
)

var kindNames = map[Kind]string{
	Invalid: "invalid",
	Bool:    "bool",
	Byte:    "byte",
	Short:   "short",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	String:  "string",
	Map:     "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves a kind from its document spelling.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == strings.ToLower(s) {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("unknown value kind %q", s)
}

// Numeric reports whether the kind participates in widening.
func (k Kind) Numeric() bool {
	return k >= Byte && k <= Double
}

// KindOf classifies a Go runtime value. Unrecognized types map to Invalid.
func KindOf(v any) Kind {
	switch v.(type) {
	case bool:
		return Bool
	case int8:
		return Byte
	case int16:
		return Short
	case int32:
		return Int
	case int64:
		return Long
	case float32:
		return Float
	case float64:
		return Double
	case string:
		return String
	case map[string]any:
		return Map
	}
	return Invalid
}

// TypeMismatchError reports a value whose runtime type is incompatible with
// what a consumer declared.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// Equal compares two runtime values by value. Numerics of different widths
// compare equal when they denote the same number.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka.Numeric() && kb.Numeric() {
		if ka <= Long && kb <= Long {
			return asLong(a) == asLong(b)
		}
		return asDouble(a) == asDouble(b)
	}
	return reflect.DeepEqual(a, b)
}

// Key renders a value in its canonical map-key form: strings verbatim,
// bools as "true"/"false", integral numerics in decimal, floating-point
// numerics in shortest round-trip form.
func Key(v any) (string, error) {
	switch k := KindOf(v); {
	case k == String:
		return v.(string), nil
	case k == Bool:
		return strconv.FormatBool(v.(bool)), nil
	case k.Numeric() && k <= Long:
		return strconv.FormatInt(asLong(v), 10), nil
	case k.Numeric():
		return strconv.FormatFloat(asDouble(v), 'g', -1, 64), nil
	}
	return "", &TypeMismatchError{Expected: "key (string, bool or number)", Got: TypeName(v)}
}

// Convert coerces a numeric value to the given numeric kind.
func Convert(v any, k Kind) (any, error) {
	vk := KindOf(v)
	if !vk.Numeric() || !k.Numeric() {
		return nil, &TypeMismatchError{Expected: k.String(), Got: TypeName(v)}
	}
	switch k {
	case Byte:
		return int8(asLong(v)), nil
	case Short:
		return int16(asLong(v)), nil
	case Int:
		return int32(asLong(v)), nil
	case Long:
		if vk >= Float {
			return int64(asDouble(v)), nil
		}
		return asLong(v), nil
	case Float:
		return float32(asDouble(v)), nil
	default:
		return asDouble(v), nil
	}
}

// TypeName names a value's kind for error messages, falling back to the Go
// type for values outside the model.
func TypeName(v any) string {
	if v == nil {
		return "nil"
	}
	if k := KindOf(v); k != Invalid {
		return k.String()
	}
	return reflect.TypeOf(v).String()
}

func asLong(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	}
	panic(fmt.Sprintf("value: asLong on non-numeric %T", v))
}

func asDouble(v any) float64 {
	switch n := v.(type) {
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	panic(fmt.Sprintf("value: asDouble on non-numeric %T", v))
}
