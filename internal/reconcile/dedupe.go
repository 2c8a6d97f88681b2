package reconcile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotFlat is returned when a record handed to Dedupe contains a
// nested value that whole-record comparison does not support.
var ErrNotFlat = errors.New("record is not flat")

// Dedupe removes duplicate records from a batch, comparing records as
// whole values: two records are identical only if every field matches.
// The first occurrence of each record is kept, so the result is
// order-independent in set terms and Dedupe is idempotent.
//
// Records must be flat structs: fields may be basic values or pointers
// to basic values. Anything nested yields ErrNotFlat.
func Dedupe[T any](records []T) ([]T, error) {
	if len(records) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]T, 0, len(records))
	for _, rec := range records {
		key, err := recordKey(reflect.ValueOf(rec))
		if err != nil {
			return nil, err
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

// recordKey builds a canonical representation of a flat record. Fields
// are joined in declaration order with a separator that cannot appear
// in catalog identifiers.
func recordKey(v reflect.Value) (string, error) {
	if v.Kind() != reflect.Struct {
		return "", fmt.Errorf("%w: %s is not a struct", ErrNotFlat, v.Kind())
	}

	var b strings.Builder
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.Pointer {
			if f.IsNil() {
				b.WriteString("<nil>\x1f")
				continue
			}
			f = f.Elem()
		}
		switch f.Kind() {
		case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Interface, reflect.Pointer, reflect.Chan, reflect.Func:
			return "", fmt.Errorf("%w: field %s is %s", ErrNotFlat, v.Type().Field(i).Name, f.Kind())
		}
		fmt.Fprintf(&b, "%v\x1f", f.Interface())
	}
	return b.String(), nil
}
