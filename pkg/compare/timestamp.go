package compare

import (
	"time"
)

// TimestampTolerance is the window within which two modification times are
// treated as equal. It absorbs clock skew and the coarse timestamp
// granularity of some filesystems and storage backends.
const TimestampTolerance = 2 * time.Second

// TimeOrder is the outcome of comparing two optional modification times
type TimeOrder int

const (
	// EqualWithinTolerance indicates both times are within TimestampTolerance
	EqualWithinTolerance TimeOrder = iota
	// LocalAfter indicates the local time is later beyond the tolerance
	LocalAfter
	// RemoteAfter indicates the remote time is later beyond the tolerance
	RemoteAfter
	// Indeterminate indicates at least one time is missing. It is not the
	// same as EqualWithinTolerance.
	Indeterminate
)

func (o TimeOrder) String() string {
	switch o {
	case EqualWithinTolerance:
		return "equal"
	case LocalAfter:
		return "local_after"
	case RemoteAfter:
		return "remote_after"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// CompareTimestamps orders a local and a remote modification time.
// A zero time means the instant is unknown. The difference is taken in
// whole seconds, truncated toward zero, before applying the tolerance.
func CompareTimestamps(local, remote time.Time) TimeOrder {
	if local.IsZero() || remote.IsZero() {
		return Indeterminate
	}

	diff := local.Sub(remote) / time.Second
	tolerance := TimestampTolerance / time.Second

	switch {
	case diff > tolerance:
		return LocalAfter
	case diff < -tolerance:
		return RemoteAfter
	default:
		return EqualWithinTolerance
	}
}
