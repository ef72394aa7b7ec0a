package agentm

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/expr-lang/expr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Expr compiles a boolean expr-lang expression over `value` into a validator
// for Writable, e.g. Expr[string](`len(value) > 0 && value != "admin"`).
// A runtime evaluation error rejects the value.
func Expr[V any](expression string) (func(V) bool, error) {
	var zero V
	program, err := expr.Compile(expression, expr.Env(map[string]any{"value": zero}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrapf(err, "compile %q", expression)
	}
	return func(v V) bool {
		out, err := expr.Run(program, map[string]any{"value": v})
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}, nil
}

func MustExpr[V any](expression string) func(V) bool {
	return must(Expr[V](expression))
}

// Schema compiles a JSON Schema (draft 2020-12) into a validator for
// Writable. Values are checked in their JSON form, so records and plain maps
// validate alike.
func Schema[V any](schema string) (func(V) bool, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", strings.NewReader(schema)); err != nil {
		return nil, errors.Wrap(err, "add schema")
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, errors.Wrap(err, "compile schema")
	}
	return func(v V) bool {
		data, err := json.Marshal(v)
		if err != nil {
			return false
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return false
		}
		return sch.Validate(doc) == nil
	}, nil
}

func MustSchema[V any](schema string) func(V) bool {
	return must(Schema[V](schema))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
