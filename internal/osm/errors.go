package osm

import "fmt"

// MalformedOsmError reports a rule that cannot be matched against the
// supported grammar subset. It carries the offending fragment and its
// character offset within the full input so callers can point at the
// exact failure; the decoder never guesses past one.
type MalformedOsmError struct {
	Fragment string
	Offset   int
	Reason   string
}

func (e *MalformedOsmError) Error() string {
	return fmt.Sprintf("malformed opening_hours at offset %d: %s (in %q)", e.Offset, e.Reason, e.Fragment)
}

func malformedf(fragment string, offset int, format string, args ...any) *MalformedOsmError {
	return &MalformedOsmError{
		Fragment: fragment,
		Offset:   offset,
		Reason:   fmt.Sprintf(format, args...),
	}
}
