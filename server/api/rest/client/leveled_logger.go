package client

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/vmware-archive/salt-ci/common/logger"
)

type leveledLoggerWrapper struct {
	realLogger logger.Log
}

// NewLeveledLogger lets the retrying HTTP client log through a logger.Log, turning its key/value
// pairs into structured fields.
func NewLeveledLogger(realLogger logger.Log) retryablehttp.LeveledLogger {
	return &leveledLoggerWrapper{realLogger: realLogger}
}

func (l *leveledLoggerWrapper) Error(msg string, keysAndValues ...interface{}) {
	l.withFields(keysAndValues).Error(msg)
}

func (l *leveledLoggerWrapper) Info(msg string, keysAndValues ...interface{}) {
	l.withFields(keysAndValues).Debug(msg)
}

func (l *leveledLoggerWrapper) Debug(msg string, keysAndValues ...interface{}) {
	l.withFields(keysAndValues).Trace(msg)
}

func (l *leveledLoggerWrapper) Warn(msg string, keysAndValues ...interface{}) {
	l.withFields(keysAndValues).Warn(msg)
}

func (l *leveledLoggerWrapper) withFields(keysAndValues []interface{}) logger.Log {
	if len(keysAndValues) == 0 {
		return l.realLogger
	}
	fields := make(logger.Fields, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields[key] = keysAndValues[i+1]
		} else {
			fields[key] = ""
		}
	}
	return l.realLogger.WithFields(fields)
}
