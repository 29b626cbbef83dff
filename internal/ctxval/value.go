package ctxval

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Value is a sealed interface representing execution-context value types.
// Only Null, String, Int, Float, Bool, List, and Object implement it.
// The union is deliberately closed: every value flowing through a pipeline
// boundary is one of these, which keeps resolution and placeholder
// detection exhaustive.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an explicit null. Distinct from an absent field:
// Resolve reports absent fields via its ok return, never as Null.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point value. Pipeline contexts carry
// arbitrary host data (scores, ratios), so floats are first-class here.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// List represents an ordered sequence of values.
type List []Value

func (List) value() {}

// Object represents a map of string keys to values.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns the object's keys in lexical order for
// deterministic iteration.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromAny converts a decoded YAML/JSON value into a Value.
// Accepts the types yaml.v3 and encoding/json produce; anything else
// is an error. Map keys must be strings.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Int(int64(val)), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("unparseable number %q", string(val))
		}
		return Float(f), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			cv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = cv
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			cv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj[k] = cv
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string map key %v (%T)", k, k)
			}
			cv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", ks, err)
			}
			obj[ks] = cv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported context value type: %T", v)
	}
}

// ToNative converts a Value back into plain Go types
// (nil, bool, string, int64, float64, []any, map[string]any).
// Used for JSON export and for handing values to the expression evaluator.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil:
		return nil
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToNative(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality between two values.
// Int and Float never compare equal even when numerically identical;
// a contract author who cares about cross-type equality should use a
// verification expression instead.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, present := bv[k]
			if !present || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Format renders a value compactly for violation messages.
// Strings are quoted; composites show their element count.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return fmt.Sprintf("%q", string(val))
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Float:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", float64(val)), "0"), ".")
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case List:
		return fmt.Sprintf("list(%d)", len(val))
	case Object:
		return fmt.Sprintf("object(%d)", len(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}
