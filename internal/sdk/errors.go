package sdk

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
)

// SensorError is the result of every fallible SDK operation.
//
// A failing SensorError carries an obligation: it must be inspected (Code,
// Message, Error, Name, Failed, errors.Is) or explicitly dismissed with Ignore
// before it becomes unreachable. A value garbage collected with the obligation
// outstanding is reported as a Defect exactly once.
//
// Operations return nil on success. A nil *SensorError behaves as an
// acknowledged Success for every method.
type SensorError struct {
	code ErrorCode
	msg  string
	ob   *obligation
}

// obligation lives outside SensorError so the runtime cleanup can observe it
// after the SensorError itself is unreachable.
type obligation struct {
	used atomic.Bool
	code ErrorCode
	msg  string
	file string
	line int
}

// NewError returns a SensorError for code. Success produces a pre-acknowledged
// value and discards msg.
func NewError(code ErrorCode, msg string) *SensorError {
	return newError(code, msg, 2)
}

// Errorf is NewError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *SensorError {
	return newError(code, fmt.Sprintf(format, args...), 2)
}

// FromError converts a Go error into a SensorError. A nil err yields nil. If
// err already wraps a SensorError, that error's code is kept and err is
// acknowledged.
func FromError(code ErrorCode, err error) *SensorError {
	if err == nil {
		return nil
	}
	var se *SensorError
	if errors.As(err, &se) && se != nil {
		code = se.Code()
	}
	return newError(code, err.Error(), 2)
}

func newError(code ErrorCode, msg string, skip int) *SensorError {
	if code == Success {
		return &SensorError{}
	}
	runtimeAssert(code.Name() != "", `code.Name() != ""`, "Invalid error code!")

	ob := &obligation{code: code, msg: msg}
	_, ob.file, ob.line, _ = runtime.Caller(skip)
	e := &SensorError{code: code, msg: msg, ob: ob}
	runtime.AddCleanup(e, checkObligation, ob)
	return e
}

func checkObligation(ob *obligation) {
	if ob.used.Load() {
		return
	}
	msg := "Error not checked!\n\t" + ob.code.String()
	if ob.msg != "" {
		msg += ": " + ob.msg
	}
	reportDefect(Defect{File: ob.file, Line: ob.line, Condition: "!code || used", Message: msg})
}

func (e *SensorError) acknowledge() {
	if e != nil && e.ob != nil {
		e.ob.used.Store(true)
	}
}

// Ignore marks the error as checked without reading it.
func (e *SensorError) Ignore() {
	e.acknowledge()
}

// Code returns the error code and marks the error as checked.
func (e *SensorError) Code() ErrorCode {
	if e == nil {
		return Success
	}
	e.acknowledge()
	return e.code
}

// Message returns the contextual message and marks the error as checked.
func (e *SensorError) Message() string {
	if e == nil {
		return ""
	}
	e.acknowledge()
	return e.msg
}

// Name returns the code name and marks the error as checked.
func (e *SensorError) Name() string {
	return e.Code().Name()
}

// Failed reports whether the code is not Success and marks the error as
// checked. It is the boolean conversion of a SensorError.
func (e *SensorError) Failed() bool {
	return e.Code() != Success
}

// IsError reports whether the code is a CEPTON_ERROR_* code. It does not mark
// the error as checked.
func (e *SensorError) IsError() bool {
	if e == nil {
		return false
	}
	return e.code.IsError()
}

// IsFault reports whether the code is a CEPTON_FAULT_* code. It does not mark
// the error as checked.
func (e *SensorError) IsFault() bool {
	if e == nil {
		return false
	}
	return e.code.IsFault()
}

// Checked reports whether the obligation has been discharged. Success values
// are always checked.
func (e *SensorError) Checked() bool {
	if e == nil || e.ob == nil {
		return true
	}
	return e.ob.used.Load()
}

// Error implements the error interface as "<NAME>" or "<NAME>: <message>" and
// marks the error as checked. Success renders as "".
func (e *SensorError) Error() string {
	code := e.Code()
	if code == Success {
		return ""
	}
	if e.msg == "" {
		return code.String()
	}
	return code.String() + ": " + e.msg
}

// Is matches another *SensorError with the same code, so errors.Is can be
// used against sentinel values built with NewError. It marks e as checked.
func (e *SensorError) Is(target error) bool {
	t, ok := target.(*SensorError)
	if !ok {
		return false
	}
	return e.Code() == t.Code()
}

// Clone returns a copy that takes over the obligation to be checked. The
// receiver is marked as checked.
func (e *SensorError) Clone() *SensorError {
	if e == nil {
		return nil
	}
	e.acknowledge()
	return newError(e.code, e.msg, 2)
}

// ErrorContext adds a fixed context line to errors assigned to it, building a
// breadcrumb trail through nested calls without losing the original code.
type ErrorContext struct {
	context string
	err     *SensorError
}

// NewErrorContext returns an empty ErrorContext holding Success.
func NewErrorContext(context string) *ErrorContext {
	return &ErrorContext{context: context}
}

// Context returns the fixed context line.
func (c *ErrorContext) Context() string { return c.context }

// Set stores inner with the context prepended to its message. A successful
// inner resets the context to Success. The previously held error is released
// without a check obligation.
func (c *ErrorContext) Set(inner *SensorError) *ErrorContext {
	c.err.Ignore()
	c.err = wrap(c.context, inner, 3)
	return c
}

// Err returns the current error, nil for Success. The caller takes over the
// obligation to check it.
func (c *ErrorContext) Err() *SensorError { return c.err }

// Failed reports whether the stored error is not Success. It marks it checked.
func (c *ErrorContext) Failed() bool { return c.err.Failed() }

// WithContext returns inner with context prepended to its message as
// "<context>\n\t<message>". Success passes through as nil.
func WithContext(context string, inner *SensorError) *SensorError {
	return wrap(context, inner, 3)
}

func wrap(context string, inner *SensorError, skip int) *SensorError {
	if !inner.Failed() {
		return nil
	}
	return newError(inner.code, context+"\n\t"+inner.Message(), skip)
}
