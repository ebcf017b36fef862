package cli

import (
	"errors"
	"fmt"
)

// ErrUsage marks operator mistakes (bad flags, bad config values, refused
// output paths) so main can print the message and exit without a stack trace.
var ErrUsage = errors.New("opnsense-gen: usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func newUsageErrorf(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}
