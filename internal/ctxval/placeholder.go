package ctxval

// PlaceholderStrings is the closed set of string literals treated as
// placeholder values. The casing is intentionally narrow: "Unknown" or
// "uNKNOWN" are real values as far as this engine is concerned. Seed
// generators in the wild emit exactly these two spellings, so the set
// is matched exactly rather than case-folded.
var PlaceholderStrings = map[string]bool{
	"unknown": true,
	"UNKNOWN": true,
}

// IsPlaceholder reports whether a resolved value is a placeholder:
// explicit null, empty string, empty list/object, or one of the
// PlaceholderStrings literals. Absence is a separate state and is
// handled by callers via Resolve's ok return.
func IsPlaceholder(v Value) bool {
	switch val := v.(type) {
	case nil:
		return true
	case Null:
		return true
	case String:
		return val == "" || PlaceholderStrings[string(val)]
	case List:
		return len(val) == 0
	case Object:
		return len(val) == 0
	default:
		return false
	}
}

// Ready reports whether a field resolved from a context carries a real
// value: present and not a placeholder.
func Ready(v Value, ok bool) bool {
	return ok && !IsPlaceholder(v)
}
