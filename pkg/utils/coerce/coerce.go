package coerce

import (
	"fmt"

	"github.com/spf13/cast"
)

// Safe coercion helpers: convert an interface{} to the target type and
// return a clear error instead of panicking. Nil coerces to the zero
// value.

func ToString(input interface{}) string {
	if input == nil {
		return ""
	}
	s, err := cast.ToStringE(input)
	if err != nil {
		// Last-resort fallback so callers always get a string.
		return fmt.Sprintf("%v", input)
	}
	return s
}

func ToInt(input interface{}) (int, error) {
	if input == nil {
		return 0, nil
	}
	i, err := cast.ToIntE(input)
	if err != nil {
		return 0, fmt.Errorf("failed to coerce value '%v' (type %T) to int", input, input)
	}
	return i, nil
}

func ToFloat64(input interface{}) (float64, error) {
	if input == nil {
		return 0, nil
	}
	f, err := cast.ToFloat64E(input)
	if err != nil {
		return 0, fmt.Errorf("failed to coerce value '%v' (type %T) to float64", input, input)
	}
	return f, nil
}

func ToBool(input interface{}) (bool, error) {
	if input == nil {
		return false, nil
	}
	b, err := cast.ToBoolE(input)
	if err != nil {
		return false, fmt.Errorf("failed to coerce value '%v' (type %T) to bool", input, input)
	}
	return b, nil
}

func ToSlice(input interface{}) ([]interface{}, error) {
	if input == nil {
		return nil, nil
	}
	s, err := cast.ToSliceE(input)
	if err != nil {
		return nil, fmt.Errorf("failed to coerce value '%v' (type %T) to slice", input, input)
	}
	return s, nil
}

func ToStringMap(input interface{}) (map[string]interface{}, error) {
	if input == nil {
		return nil, nil
	}
	m, err := cast.ToStringMapE(input)
	if err != nil {
		return nil, fmt.Errorf("failed to coerce value '%v' (type %T) to map", input, input)
	}
	return m, nil
}
