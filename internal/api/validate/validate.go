package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// FieldError describes one invalid part of a request body. Loc is the path to
// the offending value, starting with "body", e.g. ["body","show_columns",2].
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Errors collects field errors. A nil Errors means the input is valid.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		path := make([]string, len(fe.Loc))
		for i, l := range fe.Loc {
			path[i] = fmt.Sprint(l)
		}
		parts = append(parts, strings.Join(path, ".")+": "+fe.Msg)
	}
	return strings.Join(parts, "; ")
}

// Body builds a FieldError located under the request body.
func Body(msg, typ string, path ...any) FieldError {
	return FieldError{Loc: append([]any{"body"}, path...), Msg: msg, Type: typ}
}

// DecodeJSON decodes a single JSON object from r into dst. Decoding problems
// are reported as field errors so they can be returned to the client as-is.
func DecodeJSON(r io.Reader, dst any) Errors {
	dec := json.NewDecoder(r)
	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			return Errors{Body("unexpected data after JSON object", "value_error.jsondecode")}
		}
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return Errors{Body("field required", "value_error.missing")}
	case errors.As(err, &syntaxErr):
		return Errors{Body(fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset), "value_error.jsondecode")}
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return Errors{Body("value is not a valid object", "type_error.dict")}
		}
		path := make([]any, 0, 2)
		for _, p := range strings.Split(typeErr.Field, ".") {
			path = append(path, p)
		}
		name := kindName(typeErr.Type)
		return Errors{Body("value is not a valid "+name, "type_error."+name, path...)}
	default:
		return Errors{Body(err.Error(), "value_error.jsondecode")}
	}
}

func kindName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "str"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.Slice, reflect.Array:
		return "list"
	default:
		return "dict"
	}
}

// NonEmpty rejects a present but blank string. An absent (nil) value is valid.
func NonEmpty(field string, v *string) *FieldError {
	if v == nil || strings.TrimSpace(*v) != "" {
		return nil
	}
	fe := Body("ensure this value has at least 1 non-blank character", "value_error.any_str.min_length", field)
	return &fe
}

// Positive rejects a present value below 1.
func Positive(field string, v *int) *FieldError {
	if v == nil || *v >= 1 {
		return nil
	}
	fe := Body("ensure this value is greater than or equal to 1", "value_error.number.not_ge", field)
	return &fe
}

// Entries rejects blank strings inside a list, one error per bad index.
func Entries(field string, vs []string) Errors {
	var errs Errors
	for i, v := range vs {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, Body("ensure this value has at least 1 non-blank character", "value_error.any_str.min_length", field, i))
		}
	}
	return errs
}

// -------- Request specific helpers ----------

// Search validates a search request. Absent fields take defaults elsewhere;
// only values the client actually sent are checked here.
func Search(query, queryCol *string, topk *int, showColumns []string) Errors {
	var errs Errors
	for _, fe := range []*FieldError{
		NonEmpty("query", query),
		NonEmpty("query_col", queryCol),
		Positive("topk", topk),
	} {
		if fe != nil {
			errs = append(errs, *fe)
		}
	}
	errs = append(errs, Entries("show_columns", showColumns)...)
	if len(errs) == 0 {
		return nil
	}
	return errs
}
