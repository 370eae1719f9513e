package pipeline

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// Filter selects facilities with a CEL expression over the row fields,
// e.g. `facility_type == "mairie" && name.contains("Lyon")`.
type Filter struct {
	program cel.Program
}

// NewFilter compiles a filter expression. An empty expression yields a nil
// filter, which matches everything.
func NewFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("facility_type", cel.StringType),
		cel.Variable("url", cel.StringType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter environment")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("filter %q must evaluate to a boolean", expr)
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter program")
	}
	return &Filter{program: program}, nil
}

// Match reports whether the facility passes the filter. A nil filter
// matches everything.
func (f *Filter) Match(facility Facility) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.program.Eval(map[string]any{
		"id":            facility.ID,
		"name":          facility.Name,
		"facility_type": facility.FacilityType,
		"url":           facility.URL,
	})
	if err != nil {
		return false, errors.Wrap(err, "filter evaluation failed")
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("filter did not evaluate to a boolean")
	}
	return matched, nil
}
