package internal

import (
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// CloseWithErrLogf closes the given io.Closer and logs the error, if any.
func CloseWithErrLogf(logger log.Logger, closer io.Closer, format string, a ...interface{}) {
	err := closer.Close()
	if err == nil {
		return
	}

	if logger == nil {
		logger = log.NewNopLogger()
	}

	level.Warn(logger).Log("msg", "detected close error", "err", fmt.Errorf(format+", %w", append(a, err)...))
}

// CloseWithErrCapturef closes the given io.Closer and stores the error in err,
// unless err already holds one.
func CloseWithErrCapturef(err *error, closer io.Closer, format string, a ...interface{}) {
	cerr := closer.Close()
	if cerr == nil || *err != nil {
		return
	}

	*err = fmt.Errorf(format+", %w", append(a, cerr)...)
}
