package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error kinds. Every error returned by the core matches exactly one of these
// with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDuplicate         = errors.New("duplicate")
	ErrStorage           = errors.New("storage failure")
	ErrForbidden         = errors.New("forbidden")
)

// Error carries the kind of failure, the operation that produced it and an
// optional underlying cause.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: fmt.Sprintf("%s %d not found", entity, id)}
}

func InsufficientStock(op string, medicineID, available, requested int64) error {
	return &Error{
		Kind: ErrInsufficientStock,
		Op:   op,
		Msg:  fmt.Sprintf("medicine %d has %d in stock, %d requested", medicineID, available, requested),
	}
}

func InvalidTransition(op string, from, to OrderStatus) error {
	return &Error{Kind: ErrInvalidTransition, Op: op, Msg: fmt.Sprintf("order cannot move from %s to %s", from, to)}
}

func Duplicate(op, format string, args ...any) error {
	return &Error{Kind: ErrDuplicate, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(op, format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a failure of the underlying store, keeping the stack of the
// call site.
func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Err: errors.WithStack(err)}
}

// IsDomain reports whether err already carries one of the kinds above.
func IsDomain(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
