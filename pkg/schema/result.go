// Package schema turns collaborator responses into tagged results.
//
// A response is either Ok (decoded and valid), Invalid (decoded but failed
// validation) or Absent (transport failure, not found, or nothing to decode).
// Callers branch on the state instead of catching errors.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	errs "socialscraper/pkg/errors"
)

// State is the tag of a Result
type State int

const (
	Absent State = iota
	Ok
	Invalid
)

func (s State) String() string {
	switch s {
	case Ok:
		return "ok"
	case Invalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Issue is one validation failure
type Issue struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s failed %q", i.Field, i.Rule)
}

// Result is a tagged collaborator response
type Result[T any] struct {
	State  State
	Value  T
	Issues []Issue
	Err    error
}

// OkOf wraps a valid value
func OkOf[T any](v T) Result[T] {
	return Result[T]{State: Ok, Value: v}
}

// AbsentOf records that no usable value exists; cause may be nil
func AbsentOf[T any](cause error) Result[T] {
	return Result[T]{State: Absent, Err: cause}
}

// InvalidOf records a value that failed validation
func InvalidOf[T any](issues []Issue, cause error) Result[T] {
	return Result[T]{State: Invalid, Issues: issues, Err: cause}
}

// Get returns the value and whether the result is Ok
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.State == Ok
}

// IsOk reports whether the result carries a valid value
func (r Result[T]) IsOk() bool {
	return r.State == Ok
}

// Cause returns an error describing why the result is not Ok, or nil
func (r Result[T]) Cause() error {
	switch r.State {
	case Ok:
		return nil
	case Invalid:
		if r.Err != nil {
			return errs.Wrap(errs.ErrorTypeValidation, "", r.Err)
		}
		return errs.New(errs.ErrorTypeValidation, "", fmt.Sprintf("%d schema issue(s)", len(r.Issues)))
	default:
		if r.Err != nil {
			return r.Err
		}
		return errors.New("no data")
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := f.Tag.Get("json")
			for i := 0; i < len(name); i++ {
				if name[i] == ',' {
					name = name[:i]
					break
				}
			}
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Check validates v against its `validate` struct tags
func Check[T any](v T) Result[T] {
	var err error
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		err = instance().Var(v, "dive")
	} else {
		err = instance().Struct(v)
	}
	if err == nil {
		return OkOf(v)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]Issue, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, Issue{Field: fe.Namespace(), Rule: fe.Tag()})
		}
		return InvalidOf[T](issues, err)
	}
	return InvalidOf[T](nil, err)
}

// Decode unmarshals body into T and validates it.
// An empty body is Absent; malformed JSON is Invalid.
func Decode[T any](body []byte) Result[T] {
	if len(body) == 0 {
		return AbsentOf[T](errors.New("empty response body"))
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return InvalidOf[T]([]Issue{{Field: "$", Rule: "json"}}, err)
	}
	return Check(v)
}

// Map transforms an Ok value and passes any other state through unchanged
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.State != Ok {
		return Result[U]{State: r.State, Issues: r.Issues, Err: r.Err}
	}
	return OkOf(fn(r.Value))
}
