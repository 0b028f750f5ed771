package descbuilder

import "fmt"

// BuilderError reports that the synthesis inputs themselves are
// inconsistent: an unresolved fingerprint, the wrong arity for a
// template, more than one key-path spend, a timelocked key-path, or an
// out-of-range timelock value.
type BuilderError struct {
	Msg string
}

func (e *BuilderError) Error() string { return e.Msg }

func builderErrorf(format string, args ...any) error {
	return &BuilderError{Msg: fmt.Sprintf(format, args...)}
}
