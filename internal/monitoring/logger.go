// Package monitoring holds the package-level diagnostic loggers shared by the
// SDK, the replay controller and the command line tools.
package monitoring

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBaseLogger(os.Stderr)

func newBaseLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logf is the package-level diagnostic logger. It defaults to an info-level
// logrus entry on stderr but may be replaced by SetLogger. Tests or production
// code can redirect or mute it.
var Logf func(format string, v ...interface{}) = base.Infof

// Errorf receives defect diagnostics and error-stream events that nobody
// listened for. It defaults to an error-level logrus entry on stderr.
var Errorf func(format string, v ...interface{}) = base.Errorf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetErrorLogger replaces the error logger. Passing nil will set a no-op logger.
func SetErrorLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Errorf = func(string, ...interface{}) {}
		return
	}
	Errorf = f
}

// SetOutput redirects the default logrus sink.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetLevel parses a logrus level name ("debug", "info", "warn", ...) and
// applies it to the default sink.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// Debugf logs at debug level on the default sink. It is not redirected by
// SetLogger, so chatty per-record tracing stays cheap when the level is info.
func Debugf(format string, v ...interface{}) {
	base.Debugf(format, v...)
}
