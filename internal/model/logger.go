package model

//
// Logger
//

import "fmt"

// Logger is the logger used by the transport, the engines, and the
// socket layer. The apex/log `log.Log` implements it out of the box.
//
// We emit debug messages for retry signals and handshake steps, info
// messages when a connection is established or closed, and warnings
// for every failure, including the non-fatal ones.
type Logger interface {
	// Debug emits a debug message.
	Debug(msg string)

	// Debugf formats and emits a debug message.
	Debugf(format string, v ...interface{})

	// Info emits an informational message.
	Info(msg string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...interface{})

	// Warn emits a warning message.
	Warn(msg string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...interface{})
}

// DiscardLogger is the default logger that discards its input
var DiscardLogger Logger = logDiscarder{}

type logDiscarder struct{}

func (logDiscarder) Debug(msg string) {}

func (logDiscarder) Debugf(format string, v ...interface{}) {}

func (logDiscarder) Info(msg string) {}

func (logDiscarder) Infof(format string, v ...interface{}) {}

func (logDiscarder) Warn(msg string) {}

func (logDiscarder) Warnf(format string, v ...interface{}) {}

// ErrorToStringOrOK emits "ok" on "<nil>" values for success.
func ErrorToStringOrOK(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

// ValidLoggerOrDefault returns logger if not nil and DiscardLogger otherwise.
func ValidLoggerOrDefault(logger Logger) Logger {
	if logger != nil {
		return logger
	}
	return DiscardLogger
}

// NewConnLogger returns a Logger appending "(conn <id>)" to every
// message, so that we can tell apart the lines of concurrent
// connections sharing the same logger. A nil logger discards.
func NewConnLogger(logger Logger, id string) Logger {
	return &connLogger{id: id, logger: ValidLoggerOrDefault(logger)}
}

type connLogger struct {
	id     string
	logger Logger
}

func (cl *connLogger) Debug(msg string) {
	cl.logger.Debug(cl.tag(msg))
}

func (cl *connLogger) Debugf(format string, v ...interface{}) {
	cl.Debug(fmt.Sprintf(format, v...))
}

func (cl *connLogger) Info(msg string) {
	cl.logger.Info(cl.tag(msg))
}

func (cl *connLogger) Infof(format string, v ...interface{}) {
	cl.Info(fmt.Sprintf(format, v...))
}

func (cl *connLogger) Warn(msg string) {
	cl.logger.Warn(cl.tag(msg))
}

func (cl *connLogger) Warnf(format string, v ...interface{}) {
	cl.Warn(fmt.Sprintf(format, v...))
}

func (cl *connLogger) tag(msg string) string {
	return fmt.Sprintf("%s (conn %s)", msg, cl.id)
}
