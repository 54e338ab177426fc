package expect

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Expr wraps a compiled CEL program that must evaluate to a bool. The zero
// value and expressions built from blank input are disabled and always pass.
type Expr struct {
	src     string
	prog    cel.Program
	enabled bool
}

// HTTPVars declares the variables visible to HTTP probe expectations.
var HTTPVars = map[string]*cel.Type{
	"status":  cel.IntType,
	"body":    cel.StringType,
	"json":    cel.DynType,
	"path":    cel.StringType,
	"headers": cel.MapType(cel.StringType, cel.StringType),
}

// DocumentVars declares the variables visible to document expectations.
var DocumentVars = map[string]*cel.Type{
	"doc":    cel.DynType,
	"id":     cel.StringType,
	"exists": cel.BoolType,
}

// ErrNotBool is returned when an expression does not produce a bool.
var ErrNotBool = errors.New("expect: expression must evaluate to bool")

// Compile parses and type-checks expr against vars.
func Compile(expr string, vars map[string]*cel.Type) (*Expr, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Expr{}, nil
	}
	opts := make([]cel.EnvOption, 0, len(vars))
	for name, typ := range vars {
		opts = append(opts, cel.Variable(name, typ))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("expect: parse %q: %w", expr, iss.Err())
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, fmt.Errorf("expect: check %q: %w", expr, iss2.Err())
	}
	if !checked.OutputType().IsExactType(cel.BoolType) && !checked.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w (got %s)", ErrNotBool, checked.OutputType())
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return &Expr{src: expr, prog: prog, enabled: true}, nil
}

// Enabled reports whether the expression does anything.
func (e *Expr) Enabled() bool { return e != nil && e.enabled }

// String returns the source expression.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.src
}

// Eval evaluates the expression. Disabled expressions return true.
func (e *Expr) Eval(vars map[string]any) (bool, error) {
	if !e.Enabled() {
		return true, nil
	}
	out, _, err := e.prog.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("expect: eval %q: %w", e.src, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, ErrNotBool
	}
	return b, nil
}

// Normalize converts decoded document values into types CEL can adapt:
// nested maps and slices are rebuilt, integers widen to int64 and values of
// unknown types are rendered with fmt.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64, float64, []byte, time.Time, time.Duration:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = Normalize(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = Normalize(vv)
		}
		return out
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
