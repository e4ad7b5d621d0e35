// Package logger provides the structured logger used by every component
// of fileshare. It is a thin wrapper around logrus so call sites can log
// with the same Debugln/Infof/Warningln/Errorln idiom regardless of which
// component emitted the line.
package logger

import (
	"github.com/sirupsen/logrus"
)

// Logger is the logging handle passed into trackers, nodes and the block
// engine. It is satisfied by *logrus.Entry.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Debugln(args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Infoln(args ...interface{})
	Warningln(args ...interface{})
	Error(args ...interface{})
	Errorln(args ...interface{})
}

// New returns a Logger tagged with the given component name.
func New(name string) Logger {
	return logrus.WithField("component", name)
}
