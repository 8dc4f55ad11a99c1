package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputData        = errors.New("invalid input data")
	ErrOutOfBounds      = errors.New("index out of bounds")
	ErrCapacityExceeded = errors.New("antenna capacity exceeded")
)

// InputError reports malformed or missing configuration/deck data. All
// problems found by a single validation pass are carried together so one
// report lists everything that is wrong.
type InputError struct {
	Class    string
	Method   string
	Problems []string

	// Trail holds the enclosing methods the error passed through, innermost first.
	Trail []string
}

// NewInputError builds an InputError with one or more problems.
func NewInputError(class, method string, problems ...string) *InputError {
	return &InputError{Class: class, Method: method, Problems: problems}
}

func (e *InputError) Error() string {
	var b strings.Builder
	b.WriteString(origin(e.Class, e.Method))
	b.WriteString(": ")
	b.WriteString(ErrInputData.Error())
	for _, p := range e.Problems {
		b.WriteString("\n  ")
		b.WriteString(p)
	}
	for _, m := range e.Trail {
		b.WriteString("\n  from ")
		b.WriteString(m)
	}
	return b.String()
}

func (e *InputError) Is(target error) bool { return target == ErrInputData }

// OutOfBoundsError reports a request for an index outside its valid range.
// It marks a logic defect rather than bad user input.
type OutOfBoundsError struct {
	Class  string
	Method string
	What   string
	Index  int
	Bound  int

	Trail []string
}

// NewOutOfBounds builds an OutOfBoundsError for index against [0, bound).
func NewOutOfBounds(class, method, what string, index, bound int) *OutOfBoundsError {
	return &OutOfBoundsError{Class: class, Method: method, What: what, Index: index, Bound: bound}
}

func (e *OutOfBoundsError) Error() string {
	msg := fmt.Sprintf("%s: %s %s %d not in [0, %d)", origin(e.Class, e.Method), ErrOutOfBounds, e.What, e.Index, e.Bound)
	for _, m := range e.Trail {
		msg += "\n  from " + m
	}
	return msg
}

func (e *OutOfBoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// CheckIndex returns an OutOfBoundsError when index is outside [0, bound).
func CheckIndex(class, method, what string, index, bound int) error {
	if index < 0 || index >= bound {
		return NewOutOfBounds(class, method, what, index, bound)
	}
	return nil
}

// Annotate records method as an enclosing frame on InputError and
// OutOfBoundsError values and returns err. Other errors are wrapped with
// the method name.
func Annotate(err error, method string) error {
	if err == nil {
		return nil
	}
	var ie *InputError
	if errors.As(err, &ie) {
		ie.Trail = append(ie.Trail, method)
		return err
	}
	var oe *OutOfBoundsError
	if errors.As(err, &oe) {
		oe.Trail = append(oe.Trail, method)
		return err
	}
	return fmt.Errorf("%s: %w", method, err)
}

// Collector accumulates input problems across a validation pass.
type Collector struct {
	class    string
	method   string
	problems []string
}

// NewCollector starts a validation pass for class/method.
func NewCollector(class, method string) *Collector {
	return &Collector{class: class, method: method}
}

// Addf records one problem.
func (c *Collector) Addf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

// Require records "missing <field>" when ok is false.
func (c *Collector) Require(ok bool, field string) {
	if !ok {
		c.Addf("missing %s", field)
	}
}

// Merge folds another error's problems into this pass.
func (c *Collector) Merge(err error) {
	if err == nil {
		return
	}
	var ie *InputError
	if errors.As(err, &ie) {
		c.problems = append(c.problems, ie.Problems...)
		return
	}
	c.problems = append(c.problems, err.Error())
}

// Len returns the number of problems recorded so far.
func (c *Collector) Len() int { return len(c.problems) }

// Err returns the combined InputError, or nil if nothing was recorded.
func (c *Collector) Err() error {
	if len(c.problems) == 0 {
		return nil
	}
	return NewInputError(c.class, c.method, c.problems...)
}

func origin(class, method string) string {
	switch {
	case class != "" && method != "":
		return class + "::" + method
	case class != "":
		return class
	default:
		return method
	}
}
