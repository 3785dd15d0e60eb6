package log

import (
	"github.com/sirupsen/logrus"
)

// recordField is the key every per-record log line carries.
const recordField = "record"

// entryLogger wraps a logrus entry so fields accumulate per call chain.
type entryLogger struct {
	entry *logrus.Entry
}

func newEntryLogger(l *logrus.Logger) *entryLogger {
	return &entryLogger{entry: logrus.NewEntry(l)}
}

func (l *entryLogger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *entryLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *entryLogger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *entryLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *entryLogger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *entryLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *entryLogger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *entryLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *entryLogger) with(entry *logrus.Entry) Logger {
	return &entryLogger{entry: entry}
}

func (l *entryLogger) WithField(field string, value interface{}) Logger {
	return l.with(l.entry.WithField(field, value))
}

func (l *entryLogger) WithFields(fields map[string]interface{}) Logger {
	return l.with(l.entry.WithFields(fields))
}

func (l *entryLogger) WithError(err error) Logger {
	return l.with(l.entry.WithError(err))
}

// WithRecord tags the logger with a 1-based capture record index.
func (l *entryLogger) WithRecord(index int) Logger {
	return l.with(l.entry.WithField(recordField, index))
}

func (l *entryLogger) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

func (l *entryLogger) IsInfoEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.InfoLevel)
}
