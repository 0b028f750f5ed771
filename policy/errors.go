package policy

import "fmt"

// InvariantKind names the specific internal builder invariant an
// InvariantError violates. Each value corresponds to one of the
// package-boundary error kinds a caller of the deadbolt package can
// distinguish.
type InvariantKind string

const (
	InvariantMissingThreshold   InvariantKind = "MissingThreshold"
	InvariantMissingFingerprint InvariantKind = "MissingFingerprint"
	InvariantMissingPolicy      InvariantKind = "MissingPolicy"
	InvariantMissingSpendPath   InvariantKind = "MissingSpendPath"
	InvariantMissingSpendWeight InvariantKind = "MissingSpendWeight"
)

// InvariantError reports that a descriptor parsed syntactically but
// the builder could not fully characterize one of its spend paths.
type InvariantError struct {
	Kind InvariantKind
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("policy: %s: %s", e.Kind, e.Msg)
}
