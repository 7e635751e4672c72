package carv1

import "errors"

// Kind is a stable category for programmatic error handling.
//
// These categories are intended to remain stable across versions.
// Callers should branch on Kind rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindMalformedFraming marks a length prefix that is not a canonical
	// varint or exceeds the configured frame ceiling. Fatal to the read.
	KindMalformedFraming Kind = "MalformedFraming"
	// KindTruncated marks a byte source that ended mid-varint or before a
	// declared frame was complete. Fatal to the read; no partial record is
	// ever surfaced.
	KindTruncated Kind = "Truncated"
	// KindMalformedHeader marks a header whose structure decodes but whose
	// fields are absent or of the wrong shape. Fatal at open time.
	KindMalformedHeader Kind = "MalformedHeader"
	// KindUnsupportedVersion marks a format version this build does not
	// implement. Fatal at open time.
	KindUnsupportedVersion Kind = "UnsupportedVersion"
	// KindMalformedIdentifier marks a CID that cannot be parsed from its
	// canonical encoding, or one naming an unknown hash function.
	KindMalformedIdentifier Kind = "MalformedIdentifier"
	// KindMalformedBlock marks a single corrupt block record; the caller
	// chooses whether to abort the scan or skip the record.
	KindMalformedBlock Kind = "MalformedBlock"
	// KindIntegrityViolation marks a payload that does not hash to the
	// digest its CID claims.
	KindIntegrityViolation Kind = "IntegrityViolation"
	// KindIdentifierMismatch marks a writer-side refusal: the supplied CID
	// is inconsistent with the supplied payload.
	KindIdentifierMismatch Kind = "IdentifierMismatch"
	// KindArchiveClosed marks an append attempted after finalization.
	KindArchiveClosed Kind = "ArchiveClosed"
)

// Error is the library's structured error type.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, cause error) error {
	if cause == nil {
		return newError(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
