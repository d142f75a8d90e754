package path

import (
	"fmt"

	"github.com/valaphee/flow/internal/value"
)

// GetAs pulls from the data path and narrows the value to T, failing with
// TypeMismatchError when the runtime value is not a T.
func GetAs[T any](d *Data) (T, error) {
	var zero T
	v, err := d.Get()
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &value.TypeMismatchError{
			Expected: fmt.Sprintf("%T", zero),
			Got:      value.TypeName(v),
		}
	}
	return t, nil
}

// GetNumeric pulls from the data path and requires a numeric value.
func GetNumeric(d *Data) (any, error) {
	v, err := d.Get()
	if err != nil {
		return nil, err
	}
	if !value.KindOf(v).Numeric() {
		return nil, &value.TypeMismatchError{Expected: "numeric", Got: value.TypeName(v)}
	}
	return v, nil
}
