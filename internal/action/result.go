package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Result is the envelope every action returns. Exactly one of Data or Error
// is meaningful; Error is a sentence fit to show to the user.
type Result[T any] struct {
	Data  T       `json:"data"`
	Error *string `json:"error"`
}

// OK reports whether the action succeeded.
func (r Result[T]) OK() bool {
	return r.Error == nil
}

func ok[T any](v T) Result[T] {
	return Result[T]{Data: v}
}

func fail[T any](msg string) Result[T] {
	return Result[T]{Error: &msg}
}

func failf[T any](format string, args ...any) Result[T] {
	return fail[T](fmt.Sprintf(format, args...))
}

// partial returns data together with an error, for batch actions where some
// items went through.
func partial[T any](v T, msg string) Result[T] {
	return Result[T]{Data: v, Error: &msg}
}

// validationMessage turns validator errors into one readable sentence.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "The input is not valid."
	}

	problems := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			problems = append(problems, field+" is required")
		case "min":
			problems = append(problems, field+" must be at least "+fe.Param())
		case "max":
			problems = append(problems, field+" must be at most "+fe.Param())
		case "oneof":
			problems = append(problems, field+" must be one of: "+strings.ReplaceAll(fe.Param(), " ", ", "))
		case "bcp47_language_tag":
			problems = append(problems, field+" must be a language tag such as nl or de-CH")
		default:
			problems = append(problems, field+" is invalid")
		}
	}
	msg := strings.Join(problems, "; ")
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

// ResolveMessage turns a validation error from a lower layer into a
// sentence, dropping the "pkg:" prefix.
func ResolveMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i > 0 && !strings.Contains(msg[:i], " ") {
		msg = msg[i+2:]
	}
	if msg == "" {
		return "The input is not valid."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
