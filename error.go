package dml

import (
	"errors"
	"fmt"
)

var ErrClient = errors.New("dml: db and tx are all nil")
var ErrDBType = errors.New("dml: the current database type is not currently supported")
var ErrParams = errors.New("dml: expression parameter is not referenced by its sql")
var ErrTableNotFound = errors.New("dml: unknown table")
var ErrNoSequence = errors.New("dml: there is no sequence associated with table")
var ErrCompositeKey = errors.New("dml: can't reset sequence for composite primary key")
var ErrNoPrimaryKey = errors.New("dml: table has no primary key")
var ErrEmptyRow = errors.New("dml: row has no values")

// Kind sentinels, matched by errors.Is against any *Error of the same kind.
var (
	ErrNotSupported    = errors.New("dml: not supported")
	ErrInvalidArgument = errors.New("dml: invalid argument")
	ErrBinding         = errors.New("dml: binding error")
)

// ErrorKind classifies a generation failure.
type ErrorKind int

const (
	// KindUnsupported means the operation has no valid translation in the dialect.
	KindUnsupported ErrorKind = iota + 1
	// KindInvalidArgument means the input or the schema cannot satisfy the operation.
	KindInvalidArgument
	// KindBinding means a value or expression could not be bound.
	KindBinding
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindInvalidArgument:
		return "invalid argument"
	case KindBinding:
		return "binding"
	}
	return "unknown"
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnsupported:
		return ErrNotSupported
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindBinding:
		return ErrBinding
	}
	return nil
}

// Error is returned by every QueryBuilder operation that fails.
type Error struct {
	Kind  ErrorKind
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("dml: %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("dml: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotSupported) and friends match by kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind ErrorKind, op, table string, err error) *Error {
	return &Error{Kind: kind, Op: op, Table: table, Err: err}
}

func unsupported(op, table, format string, args ...any) *Error {
	return newError(KindUnsupported, op, table, fmt.Errorf(format, args...))
}

func invalidArg(op, table string, err error) *Error {
	return newError(KindInvalidArgument, op, table, err)
}

// wrapErr attaches op/table to a collaborator error without hiding its kind.
func wrapErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("dml: %s %s: %w", op, table, err)
}

// IsNotSupported reports whether err is an Unsupported-Feature error.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsInvalidArgument reports whether err is an Invalid-Argument error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
