package policy

import "errors"

var (
	// ErrConfiguration is returned when a rule is built from invalid settings.
	ErrConfiguration = errors.New("invalid policy configuration")
	// ErrSubjectData marks subjects missing a field a rule depends on.
	ErrSubjectData = errors.New("subject data missing or malformed")
	// ErrStorage wraps failures persisting a subject mutation.
	ErrStorage = errors.New("subject store unavailable")
	// ErrInternal wraps unexpected faults raised while a rule runs.
	ErrInternal = errors.New("policy evaluation failed")
	// ErrTimeout is returned when a rule does not finish in time.
	ErrTimeout = errors.New("policy evaluation timed out")
)
