package ec2dns

import "github.com/pkg/errors"

// ErrKind classifies why an internal operation failed. None of these cross
// the Engine's exported boundary as Go errors -- Resolve* always returns a
// plain ok bool -- but the concrete providers use them to classify a
// failure before logging it.
type ErrKind int

const (
	// ErrInvalidInput covers empty keys, malformed host names, malformed
	// CIDRs, and missing required construction args.
	ErrInvalidInput ErrKind = iota
	// ErrProviderTransient covers timeouts and 5xx-equivalent responses.
	ErrProviderTransient
	// ErrProviderFatal covers auth/permission/malformed-response failures.
	ErrProviderFatal
	// ErrConfigInvalid is fatal during construction.
	ErrConfigInvalid
)

func (k ErrKind) String() string {
	switch k {
	case ErrInvalidInput:
		return "invalid_input"
	case ErrProviderTransient:
		return "provider_transient"
	case ErrProviderFatal:
		return "provider_fatal"
	case ErrConfigInvalid:
		return "config_invalid"
	default:
		return "unknown"
	}
}

// ProviderError wraps a lower-level transport/SDK error with the ErrKind
// the engine uses to decide logging and counter behavior.
type ProviderError struct {
	Kind ErrKind
	Op   string
	err  error
}

func (e *ProviderError) Error() string {
	return errors.Wrapf(e.err, "%s: %s", e.Kind, e.Op).Error()
}

func (e *ProviderError) Unwrap() error { return e.err }

// WrapProviderError builds a *ProviderError, attaching a stack trace to err
// via github.com/pkg/errors' WithStack. Returns nil for a nil err.
func WrapProviderError(kind ErrKind, op string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	return &ProviderError{Kind: kind, Op: op, err: errors.WithStack(err)}
}
