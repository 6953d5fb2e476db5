package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Logging formats.
const (
	LogFormatLogfmt = "logfmt"
	LogFormatJSON   = "json"
)

// Logging levels.
const (
	LogLevelAll   = "all"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelNone  = "none"
)

// NewLogger returns a go-kit logger writing to stderr, filtered by logLevel and
// encoded with format. Every line carries a UTC timestamp, the caller and name.
func NewLogger(logLevel, format, name string) (log.Logger, error) {
	var lvl level.Option

	switch strings.ToLower(logLevel) {
	case LogLevelAll:
		lvl = level.AllowAll()
	case LogLevelDebug:
		lvl = level.AllowDebug()
	case LogLevelInfo, "":
		lvl = level.AllowInfo()
	case LogLevelWarn:
		lvl = level.AllowWarn()
	case LogLevelError:
		lvl = level.AllowError()
	case LogLevelNone:
		lvl = level.AllowNone()
	default:
		return nil, fmt.Errorf("unexpected log level <%s>", logLevel)
	}

	var logger log.Logger

	switch strings.ToLower(format) {
	case LogFormatJSON:
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	case LogFormatLogfmt, "":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	default:
		return nil, fmt.Errorf("unexpected log format <%s>", format)
	}

	logger = level.NewFilter(logger, lvl)

	if name != "" {
		logger = log.With(logger, "name", name)
	}

	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}
