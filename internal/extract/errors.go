package extract

import (
	"github.com/cockroachdb/errors"
)

// Error classes. Every extraction failure is marked with exactly one of
// these so callers can classify with errors.Is while the message carries
// the offending key or expected-vs-found shape.
var (
	// ErrShape marks a syntactic form found where a more specific
	// literal form was required.
	ErrShape = errors.New("shape error")
	// ErrResolution marks a bare-name machine config reference that
	// cannot be resolved to an object literal declaration.
	ErrResolution = errors.New("resolution error")
	// ErrSchema marks a malformed state-node property, such as a
	// computed key or a non-record where a record was required.
	ErrSchema = errors.New("schema error")
)

func shapeErrf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrShape)
}

func resolutionErrf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrResolution)
}

func schemaErrf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrSchema)
}
