package sdk

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/banshee-data/cepton-sdk-go/internal/monitoring"
)

// Defect describes a broken programming invariant, such as a SensorError that
// was dropped without being checked.
type Defect struct {
	File      string
	Line      int
	Condition string
	Message   string
}

func (d Defect) Error() string {
	if d.Message == "" {
		return fmt.Sprintf("AssertionError (file %q, line %d, condition %q)", d.File, d.Line, d.Condition)
	}
	return fmt.Sprintf("AssertionError (file %q, line %d, condition %q):\n\t%s", d.File, d.Line, d.Condition, d.Message)
}

var defectHandler atomic.Pointer[func(Defect)]

// SetDefectHandler installs f to observe every defect report in addition to
// the diagnostic log line. It returns a function restoring the previous
// handler. Passing nil removes the handler.
func SetDefectHandler(f func(Defect)) (restore func()) {
	var prev *func(Defect)
	if f == nil {
		prev = defectHandler.Swap(nil)
	} else {
		prev = defectHandler.Swap(&f)
	}
	return func() { defectHandler.Store(prev) }
}

// TerminatesOnDefect reports whether this build aborts the process on defects
// (build tag cepton_exceptions) instead of logging and continuing.
func TerminatesOnDefect() bool { return terminateOnDefect }

// reportDefect logs d and, in builds with the cepton_exceptions tag, panics.
// It may run on the runtime cleanup goroutine, where a panic terminates the
// process.
func reportDefect(d Defect) {
	monitoring.Errorf("%s", d.Error())
	if h := defectHandler.Load(); h != nil {
		(*h)(d)
	}
	if terminateOnDefect {
		panic(d)
	}
}

// runtimeAssert reports a defect at the caller's location when cond is false.
func runtimeAssert(cond bool, condition, msg string) {
	if cond {
		return
	}
	_, file, line, _ := runtime.Caller(1)
	reportDefect(Defect{File: file, Line: line, Condition: condition, Message: msg})
}
